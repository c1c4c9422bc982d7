package notify

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JoeShih716/mem-transfer-ledger/pkg/journal"
	"github.com/JoeShih716/mem-transfer-ledger/pkg/mysql"
)

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	sink := NewLogSink(zap.New(core))

	n := newNotification("A")
	require.NoError(t, sink.Notify(context.Background(), n))

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, n.Message, entries[0].Message)
	assert.Equal(t, "A", entries[0].ContextMap()["account_id"])
	assert.Equal(t, n.TransferID.String(), entries[0].ContextMap()["transfer_id"])
}

func TestJournalSink(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "notifications.log"))
	require.NoError(t, err)
	defer j.Close()

	sink := NewJournalSink(j)
	n := newNotification("A")
	require.NoError(t, sink.Notify(context.Background(), n))

	var records []Record
	require.NoError(t, j.ReadAll(func(raw json.RawMessage) error {
		var r Record
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		records = append(records, r)
		return nil
	}))
	require.Len(t, records, 1)
	assert.Equal(t, n.TransferID.String(), records[0].TransferID)
	assert.Equal(t, "A", records[0].AccountID)
	assert.True(t, records[0].Balance.Equal(n.Account.Balance))
	assert.Equal(t, n.Message, records[0].Message)
}

func TestJournalSink_ClosedJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "notifications.log"))
	require.NoError(t, err)
	require.NoError(t, j.Close())

	err = NewJournalSink(j).Notify(context.Background(), newNotification("A"))
	assert.Error(t, err)
}

func TestMultiSink_JoinsErrors(t *testing.T) {
	ok := &recordingSink{}
	bad := &recordingSink{err: errors.New("push failed")}

	err := MultiSink{bad, ok}.Notify(context.Background(), newNotification("A"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "push failed")
	assert.Len(t, ok.notifications(), 1, "later sinks still run")

	assert.NoError(t, MultiSink{ok}.Notify(context.Background(), newNotification("A")))
}

type fakePublisher struct {
	subject string
	data    []byte
	err     error
}

func (p *fakePublisher) Publish(subject string, data []byte) error {
	p.subject = subject
	p.data = data
	return p.err
}

func TestNATSSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "")

	n := newNotification("B")
	require.NoError(t, sink.Notify(context.Background(), n))
	assert.Equal(t, DefaultSubject, pub.subject)

	var r Record
	require.NoError(t, json.Unmarshal(pub.data, &r))
	assert.Equal(t, "B", r.AccountID)
	assert.Equal(t, n.TransferID.String(), r.TransferID)

	pub.err = errors.New("no responders")
	err := NewNATSSink(pub, "custom.subject").Notify(context.Background(), n)
	assert.ErrorIs(t, err, pub.err)
	assert.Equal(t, "custom.subject", pub.subject)
}

func newMockMySQLSink(t *testing.T) (*MySQLSink, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client, err := mysql.NewClientWithConn(conn, mysql.Config{LogLevel: "silent"})
	require.NoError(t, err)
	return NewMySQLSink(client), mock
}

func TestMySQLSink_Notify(t *testing.T) {
	sink, mock := newMockMySQLSink(t)
	n := newNotification("A")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `notifications`")).
		WithArgs(n.TransferID.String(), "A", "100", n.Message, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, sink.Notify(context.Background(), n))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLSink_NotifyError(t *testing.T) {
	sink, mock := newMockMySQLSink(t)

	dbErr := errors.New("connection reset")
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `notifications`")).
		WillReturnError(dbErr)

	err := sink.Notify(context.Background(), newNotification("A"))
	assert.ErrorIs(t, err, dbErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}
