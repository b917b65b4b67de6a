package mailer

import (
	"context"
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMTPSender_SendOTP(t *testing.T) {
	t.Run("Composes html message", func(t *testing.T) {
		s := NewSMTPSender("smtp.example.com", 587, "mailer", "pw", "no-reply@example.com", 10)

		var gotAddr, gotFrom string
		var gotTo []string
		var gotMsg []byte
		s.send = func(addr string, a smtp.Auth, from string, to []string, msg []byte) error {
			gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
			assert.NotNil(t, a)
			return nil
		}

		require.NoError(t, s.SendOTP(context.Background(), "jane@example.com", "Jane", "042137"))

		assert.Equal(t, "smtp.example.com:587", gotAddr)
		assert.Equal(t, "no-reply@example.com", gotFrom)
		assert.Equal(t, []string{"jane@example.com"}, gotTo)
		assert.Contains(t, string(gotMsg), "Content-Type: text/html")
		assert.Contains(t, string(gotMsg), "<strong>042137</strong>")
		assert.Contains(t, string(gotMsg), "Hi Jane")
		assert.Contains(t, string(gotMsg), "10 minutes")
	})

	t.Run("Name is escaped", func(t *testing.T) {
		s := NewSMTPSender("smtp.example.com", 25, "", "", "no-reply@example.com", 10)
		var gotMsg []byte
		s.send = func(_ string, a smtp.Auth, _ string, _ []string, msg []byte) error {
			assert.Nil(t, a)
			gotMsg = msg
			return nil
		}

		require.NoError(t, s.SendOTP(context.Background(), "x@example.com", "<script>", "111111"))
		assert.NotContains(t, string(gotMsg), "<script>")
	})

	t.Run("Relay failure", func(t *testing.T) {
		s := NewSMTPSender("smtp.example.com", 587, "", "", "no-reply@example.com", 10)
		s.send = func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}

		err := s.SendOTP(context.Background(), "x@example.com", "X", "111111")
		assert.ErrorContains(t, err, "failed to send email")
	})
}

func TestLogSender(t *testing.T) {
	assert.NoError(t, LogSender{}.SendOTP(context.Background(), "x@example.com", "X", "123456"))
}
