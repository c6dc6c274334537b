package app

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/parallax_steering/internal/steering"
)

func TestMarkerCell(t *testing.T) {
	tests := []struct {
		x, y     float64
		col, row int
	}{
		{0, 0, 20, 8},
		{-1, 1, 0, 0},
		{1, -1, 40, 16},
		{5, -5, 40, 16},
		{0.5, 0, 30, 8},
	}
	for _, tt := range tests {
		col, row := markerCell(tt.x, tt.y, fieldWidth, fieldHeight)
		if col != tt.col || row != tt.row {
			t.Fatalf("markerCell(%v,%v)=(%d,%d) want (%d,%d)", tt.x, tt.y, col, row, tt.col, tt.row)
		}
	}
}

func TestDrawSteering_Marker(t *testing.T) {
	screen := tcell.NewSimulationScreen("")
	if err := screen.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer screen.Fini()
	screen.SetSize(100, 30)

	st := steering.Status{Mode: steering.ModeIntent, Offset: steering.Offset{X: 1, Y: 1}, Paused: true}
	drawSteering(screen, st, 60)
	screen.Show()

	cells, w, _ := screen.GetContents()
	col, row := markerCell(1, 1, fieldWidth, fieldHeight)
	cell := cells[(row+1)*w+col+1]
	if len(cell.Runes) == 0 || cell.Runes[0] != markerRune {
		t.Fatalf("cell at marker=%q", cell.Runes)
	}
}

func TestRenderSteering(t *testing.T) {
	img := renderSteering(steering.Offset{X: -1, Y: -1}, true)

	mx, my := oledMarker(-1, -1)
	if img.BitAt(mx, my) != image1bit.On {
		t.Fatalf("marker pixel (%d,%d) is off", mx, my)
	}
	ox, oy := oledMarker(1, 1)
	if img.BitAt(ox, oy) != image1bit.Off {
		t.Fatalf("opposite corner (%d,%d) is on", ox, oy)
	}
	if img.BitAt(0, 0) != image1bit.On {
		t.Fatalf("frame pixel is off")
	}

	waiting := renderSteering(steering.Offset{}, false)
	cx, cy := oledMarker(0, 0)
	if waiting.BitAt(cx, cy) != image1bit.Off {
		t.Fatalf("centre drawn before any data")
	}
}

type recordingBus struct {
	addrs []uint16
}

func (b *recordingBus) String() string { return "rec" }

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	b.addrs = append(b.addrs, addr)
	return nil
}

func (b *recordingBus) SetSpeed(physic.Frequency) error { return nil }

func TestAddrBus_RewritesAddress(t *testing.T) {
	rec := &recordingBus{}
	bus := &addrBus{Bus: rec, addr: 0x3D}
	if err := bus.Tx(0x3C, []byte{0}, nil); err != nil {
		t.Fatalf("Tx: %v", err)
	}
	if len(rec.addrs) != 1 || rec.addrs[0] != 0x3D {
		t.Fatalf("addrs=%v want [0x3D]", rec.addrs)
	}
}
