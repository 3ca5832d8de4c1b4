package smtp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/config"
)

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	return m.Called(from).Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	return m.Called(to).Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Quit() error {
	return m.Called().Error(0)
}

func (m *MockSMTPClient) Close() error {
	return m.Called().Error(0)
}

type bufferCloser struct {
	bytes.Buffer
	closed bool
}

func (b *bufferCloser) Close() error {
	b.closed = true
	return nil
}

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildMessage(t *testing.T) {
	msg := string(BuildMessage("robot@example.com", "alice@example.com",
		"Upcoming renewal: Netflix\r\nBcc: evil@example.com", "line one\nline two"))

	assert.Contains(t, msg, "From: robot@example.com\r\n")
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Subject: Upcoming renewal: Netflix Bcc: evil@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
	assert.Contains(t, msg, "Content-Type: text/plain; charset=\"UTF-8\"")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nline one\r\nline two"))
}

func TestBuildMessage_EncodesNonASCIISubject(t *testing.T) {
	msg := string(BuildMessage("a@example.com", "b@example.com", "Подписка", "тело"))
	assert.Contains(t, msg, "Subject: =?UTF-8?q?")
}

func TestSend_Success(t *testing.T) {
	client := new(MockSMTPClient)
	body := &bufferCloser{}
	client.On("Mail", "robot@example.com").Return(nil).Once()
	client.On("Rcpt", "alice@example.com").Return(nil).Once()
	client.On("Data").Return(body, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()

	err := Send(client, "robot@example.com", "alice@example.com", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "hello", body.String())
	assert.True(t, body.closed)
	client.AssertExpectations(t)
}

func TestSend_RcptFails(t *testing.T) {
	client := new(MockSMTPClient)
	client.On("Mail", "robot@example.com").Return(nil).Once()
	client.On("Rcpt", "bad@example.com").Return(errors.New("550 no such user")).Once()
	client.On("Close").Return(nil).Once()

	err := Send(client, "robot@example.com", "bad@example.com", []byte("hello"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RCPT TO bad@example.com")
	client.AssertNotCalled(t, "Data")
	client.AssertExpectations(t)
}

func TestTransport_NotConfigured(t *testing.T) {
	tr := NewTransport(config.SMTP{}, newNoopLogger())
	_, err := tr.Connect(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
}

func TestTransport_DialFails(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, port, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, ln.Close())

	tr := NewTransport(config.SMTP{SMTPHost: "127.0.0.1", SMTPPort: port, SMTPUser: "robot@example.com"}, newNoopLogger())
	_, err = tr.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to dial SMTP server")
	assert.Equal(t, "robot@example.com", tr.GetSMTPUser())
}
