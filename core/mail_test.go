package core

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	require.NoError(t, ParseEmailTemplates(NewTestConfig()))

	type data struct {
		Name            string
		AppliedDate     string
		AdmissionNumber string
		RejectionReason string
	}
	to := []mail.Address{{Name: "Grace", Address: "grace@test.cd"}}

	t.Run("templated", func(t *testing.T) {
		msg := &EmailMessage{
			To:           to,
			TemplateName: "application_approved",
			TemplateData: data{Name: "Grace", AdmissionNumber: "ADM-00142"},
		}
		require.NoError(t, msg.Render())
		assert.True(t, strings.HasPrefix(msg.TextContent, "Hello Grace,"))
		assert.Contains(t, msg.TextContent, "Your admission number is: ADM-00142")
		assert.Contains(t, msg.HTMLContent, "ADM-00142")
		assert.True(t, msg.HasContent())
	})

	t.Run("html escaped", func(t *testing.T) {
		msg := &EmailMessage{
			To:           to,
			TemplateName: "application_rejected",
			TemplateData: data{Name: "Grace", RejectionReason: "<b>late</b>"},
		}
		require.NoError(t, msg.Render())
		assert.Contains(t, msg.TextContent, "Reason: <b>late</b>")
		assert.NotContains(t, msg.HTMLContent, "<b>late</b>")
		assert.Contains(t, msg.HTMLContent, "&lt;b&gt;late&lt;/b&gt;")
	})

	t.Run("plain body", func(t *testing.T) {
		msg := &EmailMessage{To: to, BodyStr: "hello"}
		require.NoError(t, msg.Render())
		assert.Equal(t, "hello", msg.TextContent)
		assert.Empty(t, msg.HTMLContent)
	})

	t.Run("unknown template", func(t *testing.T) {
		msg := &EmailMessage{To: to, TemplateName: "lol"}
		assert.EqualError(t, msg.Render(), `unknown email template "lol"`)
		assert.False(t, msg.HasContent())
	})
}

func TestEmailMessage_Attach(t *testing.T) {
	msg := &EmailMessage{}
	require.NoError(t, msg.Attach(strings.NewReader("hello"), "hello.txt"))
	require.True(t, msg.HasAttachments())
	at := msg.Attachments[0]
	assert.Equal(t, "hello.txt", at.Filename)
	assert.Equal(t, "text/plain; charset=utf-8", at.ContentType)
	assert.Equal(t, "aGVsbG8=", at.Content.String())
}
