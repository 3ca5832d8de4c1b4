package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/subscription-tracker/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/subscription-tracker/internal/lib/smtp"
	"github.com/magabrotheeeer/subscription-tracker/internal/models"
)

type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) MarkSent(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (smtp.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) GetSMTPUser() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

type bufferCloser struct {
	bytes.Buffer
}

func (b *bufferCloser) Close() error { return nil }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func emailBody(t *testing.T) []byte {
	body, err := json.Marshal(models.EmailMessage{
		NotificationID: "n-1",
		Email:          "alice@example.com",
		Username:       "alice",
		Subject:        "Upcoming renewal: Netflix",
		Body:           "Hello, alice!\n\nYour Netflix subscription will renew in 1 day for USD 9.99\n",
	})
	require.NoError(t, err)
	return body
}

func happyClient(buf *bufferCloser) *MockSMTPClient {
	client := new(MockSMTPClient)
	client.On("Mail", "robot@example.com").Return(nil).Once()
	client.On("Rcpt", "alice@example.com").Return(nil).Once()
	client.On("Data").Return(buf, nil).Once()
	client.On("Quit").Return(nil).Once()
	client.On("Close").Return(nil).Once()
	return client
}

func TestSendNotificationEmail_Success(t *testing.T) {
	buf := &bufferCloser{}
	client := happyClient(buf)
	transport := new(MockTransport)
	transport.On("Connect", mock.Anything).Return(client, nil).Once()
	transport.On("GetSMTPUser").Return("robot@example.com")
	ledger := new(MockLedger)
	ledger.On("MarkSent", mock.Anything, "n-1").Return(true, nil).Once()

	s := NewSenderService(transport, ledger, newNoopLogger())
	err := s.Handler(context.Background())(emailBody(t))
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "Subject: Upcoming renewal: Netflix")
	assert.Contains(t, buf.String(), "To: alice@example.com")
	client.AssertExpectations(t)
	ledger.AssertExpectations(t)
}

func TestSendNotificationEmail_InvalidPayloadIsDropped(t *testing.T) {
	transport := new(MockTransport)
	ledger := new(MockLedger)
	s := NewSenderService(transport, ledger, newNoopLogger())

	for _, body := range [][]byte{[]byte("not json"), []byte(`{"notification_id":"n-1"}`)} {
		err := s.SendNotificationEmail(context.Background(), body)
		require.ErrorIs(t, err, rabbitmq.ErrDrop)
	}
	transport.AssertNotCalled(t, "Connect", mock.Anything)
	ledger.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestSendNotificationEmail_ConnectFailureIsRetried(t *testing.T) {
	transport := new(MockTransport)
	transport.On("Connect", mock.Anything).Return(nil, errors.New("dial tcp: refused")).Once()
	ledger := new(MockLedger)

	s := NewSenderService(transport, ledger, newNoopLogger())
	err := s.SendNotificationEmail(context.Background(), emailBody(t))
	require.Error(t, err)
	assert.NotErrorIs(t, err, rabbitmq.ErrDrop)
	ledger.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestSendNotificationEmail_SendFailure(t *testing.T) {
	client := new(MockSMTPClient)
	client.On("Mail", "robot@example.com").Return(nil).Once()
	client.On("Rcpt", "alice@example.com").Return(errors.New("550 mailbox unavailable")).Once()
	client.On("Close").Return(nil).Once()
	transport := new(MockTransport)
	transport.On("Connect", mock.Anything).Return(client, nil).Once()
	transport.On("GetSMTPUser").Return("robot@example.com")
	ledger := new(MockLedger)

	s := NewSenderService(transport, ledger, newNoopLogger())
	err := s.SendNotificationEmail(context.Background(), emailBody(t))
	require.Error(t, err)
	ledger.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything)
}

func TestSendNotificationEmail_LedgerFailureStillAcks(t *testing.T) {
	client := happyClient(&bufferCloser{})
	transport := new(MockTransport)
	transport.On("Connect", mock.Anything).Return(client, nil).Once()
	transport.On("GetSMTPUser").Return("robot@example.com")
	ledger := new(MockLedger)
	ledger.On("MarkSent", mock.Anything, "n-1").Return(false, errors.New("db down")).Once()

	s := NewSenderService(transport, ledger, newNoopLogger())
	err := s.SendNotificationEmail(context.Background(), emailBody(t))
	require.NoError(t, err)
	ledger.AssertExpectations(t)
}
