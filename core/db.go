package core

// DBOrdering is a column to sort query results by.
// Field is the storage column name; stores without columns map it to their own field names.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
