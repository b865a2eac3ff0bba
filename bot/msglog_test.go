package bot

import (
	"fmt"
	"testing"
)

func TestMsgLogStartStop(t *testing.T) {
	l := newMsgLog()

	if !l.Start("c1") {
		t.Fatal("first Start should succeed")
	}
	if l.Start("c1") {
		t.Error("second Start should report already logging")
	}
	if !l.Logged("c1") {
		t.Error("channel should be logged")
	}

	if !l.Stop("c1") {
		t.Error("Stop should succeed for a logged channel")
	}
	if l.Stop("c1") {
		t.Error("second Stop should report not logging")
	}
	if l.Logged("c1") {
		t.Error("channel should no longer be logged")
	}
}

func TestMsgLogAddIgnoresUnlogged(t *testing.T) {
	l := newMsgLog()
	l.Add("c1", "someone", "hello")
	if got := l.Recent("c1", 10); got != nil {
		t.Errorf("Recent() = %v, want nil", got)
	}
}

func TestMsgLogRecentNewestFirst(t *testing.T) {
	l := newMsgLog()
	l.Start("c1")
	l.Add("c1", "a", "first")
	l.Add("c1", "b", "second")
	l.Add("c1", "c", "third")

	got := l.Recent("c1", 2)
	if len(got) != 2 {
		t.Fatalf("Recent() returned %v entries, want 2", len(got))
	}
	if got[0].Content != "third" || got[1].Content != "second" {
		t.Errorf("Recent() order wrong: %v, %v", got[0].Content, got[1].Content)
	}
}

func TestMsgLogCap(t *testing.T) {
	l := newMsgLog()
	l.Start("c1")
	for i := 0; i < msgLogCap+20; i++ {
		l.Add("c1", "a", fmt.Sprint(i))
	}

	got := l.Recent("c1", msgLogCap+20)
	if len(got) != msgLogCap {
		t.Errorf("ring holds %v entries, want %v", len(got), msgLogCap)
	}
	if got[0].Content != fmt.Sprint(msgLogCap+19) {
		t.Errorf("newest entry = %v, want %v", got[0].Content, msgLogCap+19)
	}
}
