package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

func TestLockerLockSuccess(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	mock.ExpectSetNX("catsync:sync-lock:test", "run-1", 5*time.Second).SetVal(true)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerLockAlreadyHeld(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	mock.ExpectSetNX("catsync:sync-lock:test", "run-1", 5*time.Second).SetVal(false)

	err := locker.Lock(context.Background(), 5*time.Second)
	assert.EqualError(t, err, "lock for key catsync:sync-lock:test is already held")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerUnlockSuccess(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"catsync:sync-lock:test"}, "run-1").SetVal(int64(1))

	err := locker.Unlock(context.Background())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerUnlockNotHolder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	script := "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	mock.ExpectEval(script, []string{"catsync:sync-lock:test"}, "run-1").SetVal(int64(0))

	err := locker.Unlock(context.Background())
	assert.EqualError(t, err, "unlock failed, either lock expired or you're not the lock holder for key catsync:sync-lock:test")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerWaitLockSuccess(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	mock.ExpectSetNX("catsync:sync-lock:test", "run-1", 5*time.Second).SetVal(true)

	err := locker.WaitLock(context.Background(), 5*time.Second, 2*time.Second)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockerWaitLockTimeout(t *testing.T) {
	db, mock := redismock.NewClientMock()
	locker := NewLocker(db, "catsync:sync-lock:test", "run-1")

	mock.ExpectSetNX("catsync:sync-lock:test", "run-1", 5*time.Second).SetVal(false)

	err := locker.WaitLock(context.Background(), 5*time.Second, 300*time.Millisecond)
	assert.EqualError(t, err, "failed to acquire lock for key catsync:sync-lock:test within the wait timeout")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewSyncLocker(t *testing.T) {
	db, _ := redismock.NewClientMock()
	locker := NewSyncLocker(db, "my-project")
	assert.Equal(t, "catsync:sync-lock:my-project", locker.key)
	assert.Contains(t, locker.value, "lock_")
}
