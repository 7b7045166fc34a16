package cmd

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

func TestLineEmitterConcurrentWrites(t *testing.T) {
	var buf bytes.Buffer
	e := newLineEmitter(&buf)

	// Inventory hooks and realtime updates emit from different goroutines;
	// every line must still come out whole and decodable.
	const writers = 8
	const perWriter = 50

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				e.Emit("update", map[string]int{"writer": w, "seq": i})
			}
		}(w)
	}
	wg.Wait()

	lines := 0
	scanner := bufio.NewScanner(strings.NewReader(buf.String()))
	for scanner.Scan() {
		lines++
		var line struct {
			Kind string          `json:"kind"`
			At   string          `json:"at"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil {
			t.Fatalf("line %d is not valid JSON: %v (%q)", lines, err, scanner.Text())
		}
		if line.Kind != "update" || line.At == "" {
			t.Fatalf("line %d malformed: %+v", lines, line)
		}
	}
	if lines != writers*perWriter {
		t.Errorf("emitted lines = %d, want %d", lines, writers*perWriter)
	}
}
