package logger

import "testing"

func TestSetupDoesNotPanic(t *testing.T) {
	Setup("DEBUG", "json")
	Setup("INFO", "console")
	Setup("bogus", "bogus") // falls back to info/console

	Log.Info("test message", "key", "value")
	Log.Debug("debug message", "n", 42)
	Log.Warn("warn message")
	Log.Error("error message", "odd-trailing-key")
}

func TestComponentLogger(t *testing.T) {
	child := Log.Component("test")
	if child == nil {
		t.Fatal("component logger is nil")
	}
	child.Info("tagged message", "k", 1)
}
