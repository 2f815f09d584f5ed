package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func seedFile(t *testing.T, dir, rel string, size int, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, make([]byte, size), 0644); err != nil {
		t.Fatal(err)
	}
	mt := time.Now().Add(-age)
	if err := os.Chtimes(path, mt, mt); err != nil {
		t.Fatal(err)
	}
	return path
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func TestSweepByAge(t *testing.T) {
	dir := t.TempDir()
	expired := seedFile(t, dir, "all/all.log.2", 10, 40*24*time.Hour)
	fresh := seedFile(t, dir, "all/all.log.1", 10, 2*24*time.Hour)
	activeOld := seedFile(t, dir, "all/all.log", 10, 40*24*time.Hour)

	cl := newCleaner(dir, 30*24*time.Hour, 1<<30, newClaimSet(), testLogger(), time.Now)
	res := cl.Sweep()

	if exists(expired) {
		t.Error("expired rotated segment should be deleted")
	}
	if !exists(fresh) {
		t.Error("segment inside the age window should survive")
	}
	if !exists(activeOld) {
		t.Error("active segment must never be deleted, however old")
	}
	if res.Deleted != 1 || res.FreedBytes != 10 {
		t.Errorf("result = %+v", res)
	}
}

func TestSweepBySizeOldestFirst(t *testing.T) {
	dir := t.TempDir()
	oldest := seedFile(t, dir, "all/all.log.3", 400, 72*time.Hour)
	middle := seedFile(t, dir, "core/core.log.1", 400, 48*time.Hour)
	newest := seedFile(t, dir, "all/all.log.1", 400, 24*time.Hour)
	active := seedFile(t, dir, "all/all.log", 400, 96*time.Hour)

	// Budget of 1000 bytes against a 1600-byte corpus: the two oldest
	// rotated segments must go, the newest rotated and the active stay.
	cl := newCleaner(dir, 365*24*time.Hour, 1000, newClaimSet(), testLogger(), time.Now)
	res := cl.Sweep()

	if exists(oldest) || exists(middle) {
		t.Error("the two oldest rotated segments should be deleted")
	}
	if !exists(newest) {
		t.Error("newest rotated segment should survive")
	}
	if !exists(active) {
		t.Error("active segment must survive the size pass")
	}
	if res.Deleted != 2 || res.FreedBytes != 800 {
		t.Errorf("result = %+v", res)
	}
}

func TestSweepSizePassStopsAtActiveOnly(t *testing.T) {
	dir := t.TempDir()
	a := seedFile(t, dir, "all/all.log", 5000, time.Hour)
	b := seedFile(t, dir, "core/core.log", 5000, time.Hour)

	cl := newCleaner(dir, 365*24*time.Hour, 1000, newClaimSet(), testLogger(), time.Now)
	res := cl.Sweep()

	if !exists(a) || !exists(b) {
		t.Error("only active segments exist; nothing may be deleted")
	}
	if res.Deleted != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestSweepSkipsClaimedFiles(t *testing.T) {
	dir := t.TempDir()
	claimed := seedFile(t, dir, "all/all.log.1", 10, 40*24*time.Hour)

	claims := newClaimSet()
	if !claims.tryClaim(claimed) {
		t.Fatal("claim failed")
	}

	cl := newCleaner(dir, 30*24*time.Hour, 1<<30, claims, testLogger(), time.Now)
	res := cl.Sweep()

	if !exists(claimed) {
		t.Error("claimed file must not be deleted mid-compression")
	}
	if res.Deleted != 0 {
		t.Errorf("result = %+v", res)
	}

	claims.release(claimed)
	if res := cl.Sweep(); res.Deleted != 1 {
		t.Errorf("released file should be swept next pass, result = %+v", res)
	}
}

func TestSweepBothPassesIndependent(t *testing.T) {
	dir := t.TempDir()
	// Expired but corpus under size budget: age pass still fires.
	for i := 1; i <= 3; i++ {
		seedFile(t, dir, fmt.Sprintf("all/all.log.%d", i), 10, 40*24*time.Hour)
	}
	cl := newCleaner(dir, 30*24*time.Hour, 1<<30, newClaimSet(), testLogger(), time.Now)
	if res := cl.Sweep(); res.Deleted != 3 {
		t.Errorf("age pass should run regardless of size budget, result = %+v", res)
	}
}
