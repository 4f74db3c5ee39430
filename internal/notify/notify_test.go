package notify

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_String(t *testing.T) {
	assert.Equal(t, "sent", Sent.String())
	assert.Equal(t, "unsupported", Unsupported.String())
	assert.Equal(t, "denied", Denied.String())
	assert.Equal(t, "failed", Failed.String())
}

func TestNoop(t *testing.T) {
	outcome := Noop{}.Notify(Notification{Title: "t", Body: "b"})
	assert.Equal(t, Unsupported, outcome.Result)
	assert.NoError(t, outcome.Err)
}

func TestDesktop_MissingBinaryIsUnsupported(t *testing.T) {
	d := &Desktop{binary: "definitely-not-a-real-notifier"}
	outcome := d.Notify(Notification{Title: "t", Body: "b"})
	assert.Equal(t, Unsupported, outcome.Result)
}

func TestDesktop_RunsStubBinary(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}

	dir := t.TempDir()
	stub := filepath.Join(dir, "notify-stub")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nexit 0\n"), 0755))

	d := &Desktop{binary: stub}
	outcome := d.Notify(Notification{Title: "CampoSync", Body: "1 record(s) synced"})
	assert.Equal(t, Sent, outcome.Result)
}

func TestDesktop_FailingBinaryIsFailed(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}

	dir := t.TempDir()
	stub := filepath.Join(dir, "notify-stub")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\nexit 1\n"), 0755))

	d := &Desktop{binary: stub}
	outcome := d.Notify(Notification{Title: "t", Body: "b"})
	assert.Equal(t, Failed, outcome.Result)
	assert.Error(t, outcome.Err)
}
