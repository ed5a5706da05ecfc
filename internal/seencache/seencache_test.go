package seencache

import (
	"testing"
	"time"
)

func TestMarkAndSeenInMemory(t *testing.T) {
	c, err := Open("", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	if c.Seen("YouTube", "abc123") {
		t.Fatal("fresh cache should not have seen abc123")
	}
	if err := c.Mark("YouTube", "abc123"); err != nil {
		t.Fatal(err)
	}
	if !c.Seen("YouTube", "abc123") {
		t.Fatal("marked id should be seen")
	}
	// Same id on a different platform is a distinct key.
	if c.Seen("Discourse", "abc123") {
		t.Fatal("platform must partition the key space")
	}
}

func TestPersistentAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Mark("Discourse", "42"); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}

	c2, err := Open(dir, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	defer c2.Close()
	if !c2.Seen("Discourse", "42") {
		t.Fatal("mark should survive reopen")
	}
}
