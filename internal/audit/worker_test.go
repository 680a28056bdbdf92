package audit

import (
	"bufio"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	pricer "github.com/jwaldner/optionsengine/pricer_lib"
)

func readLines(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var entries []Entry
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestWorkerAppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audits", "pricing.jsonl")
	a, err := NewJSONLAuditLogger(path, 10)
	if err != nil {
		t.Fatalf("NewJSONLAuditLogger: %v", err)
	}

	for _, op := range []string{"Price", "Compare", "PriceLattice"} {
		if err := a.LogPricingOperation("req-1", op, map[string]interface{}{"price": 10.45}); err != nil {
			t.Fatalf("LogPricingOperation(%s): %v", op, err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	entries := readLines(t, path)
	if len(entries) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(entries))
	}
	if entries[0].Operation != "Price" || entries[2].Operation != "PriceLattice" {
		t.Errorf("entries out of order: %+v", entries)
	}
	if entries[1].RequestID != "req-1" || entries[1].Timestamp == "" {
		t.Errorf("entry missing metadata: %+v", entries[1])
	}
	t.Logf("📝 wrote %d audit lines", len(entries))
}

func TestWorkerFlagsNonFinite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.jsonl")
	a, err := NewJSONLAuditLogger(path, 10)
	if err != nil {
		t.Fatalf("NewJSONLAuditLogger: %v", err)
	}

	data := map[string]interface{}{
		"inputs": map[string]interface{}{"volatility": math.Inf(1)},
		"steps":  []interface{}{10.0, math.NaN()},
	}
	if err := a.LogPricingOperation("req-2", "Price", data); err != nil {
		t.Fatalf("LogPricingOperation: %v", err)
	}
	a.Close()

	entries := readLines(t, path)
	if len(entries) != 1 || !entries[0].NonFinite {
		t.Fatalf("expected one flagged entry, got %+v", entries)
	}
	inputs := entries[0].Data.(map[string]interface{})["inputs"].(map[string]interface{})
	if inputs["volatility"] != "+Inf" {
		t.Errorf("expected +Inf to be stringified, got %v", inputs["volatility"])
	}
}

func TestWorkerFlagsNonFiniteInsideStructs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pricing.jsonl")
	a, err := NewJSONLAuditLogger(path, 10)
	if err != nil {
		t.Fatalf("NewJSONLAuditLogger: %v", err)
	}

	// Same shape the pricing handler sends: engine structs inside a map.
	data := map[string]interface{}{
		"result": pricer.Result{Price: math.NaN(), Model: pricer.Lattice, Steps: 10},
		"greeks": &pricer.Greeks{Delta: 0.5, Vega: math.Inf(-1)},
	}
	if err := a.LogPricingOperation("req-3", "PriceLattice", data); err != nil {
		t.Fatalf("LogPricingOperation: %v", err)
	}
	finite := map[string]interface{}{"result": pricer.Result{Price: 10.45, Model: pricer.Analytic}}
	if err := a.LogPricingOperation("req-4", "Price", finite); err != nil {
		t.Fatalf("LogPricingOperation: %v", err)
	}
	a.Close()

	entries := readLines(t, path)
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %+v", entries)
	}
	if !entries[0].NonFinite || entries[1].NonFinite {
		t.Fatalf("flags wrong: %v %v", entries[0].NonFinite, entries[1].NonFinite)
	}

	logged := entries[0].Data.(map[string]interface{})
	result := logged["result"].(map[string]interface{})
	if result["price"] != "NaN" || result["model_used"] != "lattice" || result["steps"] != 10.0 {
		t.Errorf("result not sanitized in its JSON shape: %v", result)
	}
	greeks := logged["greeks"].(map[string]interface{})
	if greeks["vega"] != "-Inf" || greeks["delta"] != 0.5 {
		t.Errorf("greeks not sanitized: %v", greeks)
	}
	t.Logf("✅ struct payload flagged and written: %v", result)
}

func TestWorkerArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.jsonl")
	a, err := NewJSONLAuditLogger(path, 10)
	if err != nil {
		t.Fatalf("NewJSONLAuditLogger: %v", err)
	}

	a.LogPricingOperation("req-1", "Price", nil)
	a.LogPricingOperation("", "archive", nil)
	a.LogPricingOperation("req-2", "Price", nil)
	a.Close()

	archived, err := filepath.Glob(filepath.Join(dir, "archive", "pricing_*.jsonl"))
	if err != nil || len(archived) != 1 {
		t.Fatalf("expected one archived file, got %v (%v)", archived, err)
	}
	if old := readLines(t, archived[0]); len(old) != 1 || old[0].RequestID != "req-1" {
		t.Errorf("archive content wrong: %+v", old)
	}
	if cur := readLines(t, path); len(cur) != 1 || cur[0].RequestID != "req-2" {
		t.Errorf("fresh file content wrong: %+v", cur)
	}
}

func TestWorkerChannelFullAndClosed(t *testing.T) {
	a := &JSONLAuditLogger{ch: make(chan AuditAction, 1), done: make(chan struct{})}
	a.now = time.Now

	if err := a.LogPricingOperation("r", "Price", nil); err != nil {
		t.Fatalf("first send: %v", err)
	}
	// No worker is draining, so the second send must not block.
	if err := a.LogPricingOperation("r", "Price", nil); err != ErrChannelFull {
		t.Errorf("expected ErrChannelFull, got %v", err)
	}

	close(a.done)
	a.Close()
	if err := a.LogPricingOperation("r", "Price", nil); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestNopAuditor(t *testing.T) {
	var a PricingAuditor = NopAuditor{}
	if err := a.LogPricingOperation("r", "Price", 1.0); err != nil {
		t.Errorf("NopAuditor returned %v", err)
	}
}
