package progressbar

import (
	"bytes"
	"strings"
	"testing"
)

func TestManualProgressBar(t *testing.T) {
	var out bytes.Buffer
	p := NewManualProgressBar(&out, 10, 4)

	for i := 0; i < 6; i++ {
		p.Increment()
	}
	if p.Percent() != 100 {
		t.Errorf("increment: progress exceeds maximum: %v", p.Percent())
	}

	p.SetLabel("loss=%.2f", 0.5)
	bar := p.String()
	if strings.Count(bar, "█") != 10 {
		t.Errorf("string: want 10 blocks, have %q", bar)
	}
	if !strings.Contains(bar, "[100.00%") || !strings.HasSuffix(bar,
		"loss=0.50") {
		t.Errorf("string: unexpected bar %q", bar)
	}

	p.Done()
	if !strings.HasSuffix(out.String(), "loss=0.50\n") {
		t.Errorf("done: unexpected output %q", out.String())
	}
}

func TestManualProgressBarPartial(t *testing.T) {
	p := NewManualProgressBar(&bytes.Buffer{}, 10, 4)
	p.Increment()
	if p.Percent() != 25 {
		t.Errorf("percent: want 25, have %v", p.Percent())
	}
	if n := strings.Count(p.String(), "█"); n != 3 {
		t.Errorf("string: want 3 blocks, have %d", n)
	}
}
