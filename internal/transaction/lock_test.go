package transaction

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireAndRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	// A second acquisition must fail while the lock is held.
	if _, err := AcquireLock(dir); !errors.Is(err, ErrLockExists) {
		t.Fatalf("second acquire error = %v, want ErrLockExists", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// After release the lock can be taken again.
	lock2, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("reacquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	lock, err := AcquireLock(t.TempDir())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first Release: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release: %v", err)
	}
}

func TestStaleLockIsBroken(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".depfetch.lock")

	if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0o600); err != nil {
		t.Fatalf("write stale lock: %v", err)
	}
	old := time.Now().Add(-StaleLockThreshold - time.Minute)
	if err := os.Chtimes(lockPath, old, old); err != nil {
		t.Fatalf("age lock file: %v", err)
	}

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("stale lock should be broken, got: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFreshLockIsRespected(t *testing.T) {
	dir := t.TempDir()
	lockPath := filepath.Join(dir, ".depfetch.lock")

	if err := os.WriteFile(lockPath, []byte("pid=1\n"), 0o600); err != nil {
		t.Fatalf("write lock: %v", err)
	}

	if _, err := AcquireLock(dir); !errors.Is(err, ErrLockExists) {
		t.Fatalf("error = %v, want ErrLockExists", err)
	}
}
