package app

import (
	"encoding/json"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/parallax_steering/internal/config"
	"github.com/relabs-tech/parallax_steering/internal/steering"
)

const (
	oledWidth  = 128
	oledHeight = 64

	// The steering field is the square on the left of the panel.
	oledField = 64
)

// DisplayData holds the latest offset received for the display.
type DisplayData struct {
	mu     sync.RWMutex
	offset steering.Offset
	have   bool
}

func (d *DisplayData) set(off steering.Offset) {
	d.mu.Lock()
	d.offset = off
	d.have = true
	d.mu.Unlock()
}

func (d *DisplayData) get() (steering.Offset, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.offset, d.have
}

func RunDisplay() error {
	cfg := config.Get()

	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("failed to initialize periph: %w", err)
	}

	// Open I2C bus
	bus, err := i2creg.Open("")
	if err != nil {
		return fmt.Errorf("failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(&addrBus{Bus: bus, addr: cfg.DisplayI2CAddr}, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	data := &DisplayData{}

	client, err := connectMQTT("display", cfg.MQTTBroker, cfg.MQTTClientIDDisplay)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	err = subscribe("display", client, cfg.TopicSteering, func(_ string, payload []byte) {
		var off steering.Offset
		if err := json.Unmarshal(payload, &off); err != nil {
			log.Printf("display: steering unmarshal error: %v", err)
			return
		}
		data.set(off)
	})
	if err != nil {
		return err
	}

	ticker := time.NewTicker(time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond)
	defer ticker.Stop()

	log.Println("display: starting update loop")

	for range ticker.C {
		off, have := data.get()
		if err := dev.Draw(dev.Bounds(), renderSteering(off, have), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
	return nil
}

// addrBus sends every transaction to addr. ssd1306.NewI2C always talks to
// 0x3C; this lets DISPLAY_I2C_ADDR select a panel strapped to 0x3D.
type addrBus struct {
	i2c.Bus
	addr uint16
}

func (b *addrBus) Tx(_ uint16, w, r []byte) error {
	return b.Bus.Tx(b.addr, w, r)
}

func newFrame() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, oledWidth, oledHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// oledMarker maps an offset to the pixel at the centre of the marker.
func oledMarker(x, y float64) (px, py int) {
	col, row := markerCell(x, y, oledField-4, oledField-4)
	return col + 2, row + 2
}

// renderSteering draws the field frame, a centre tick and a 3x3 marker,
// with the numeric offset on the right.
func renderSteering(off steering.Offset, have bool) *image1bit.VerticalLSB {
	img, drawer := newFrame()

	for i := 0; i < oledField; i++ {
		img.SetBit(i, 0, image1bit.On)
		img.SetBit(i, oledField-1, image1bit.On)
		img.SetBit(0, i, image1bit.On)
		img.SetBit(oledField-1, i, image1bit.On)
	}

	if !have {
		drawer.Dot = fixed.P(oledField+4, 26)
		drawer.DrawBytes([]byte("Steering"))
		drawer.Dot = fixed.P(oledField+4, 39)
		drawer.DrawBytes([]byte("Waiting."))
		return img
	}

	cx, cy := oledMarker(0, 0)
	img.SetBit(cx, cy, image1bit.On)

	mx, my := oledMarker(off.X, off.Y)
	for dx := -1; dx <= 1; dx++ {
		for dy := -1; dy <= 1; dy++ {
			img.SetBit(mx+dx, my+dy, image1bit.On)
		}
	}

	drawer.Dot = fixed.P(oledField+4, 26)
	drawer.DrawBytes([]byte(fmt.Sprintf("X%+.3f", off.X)))
	drawer.Dot = fixed.P(oledField+4, 39)
	drawer.DrawBytes([]byte(fmt.Sprintf("Y%+.3f", off.Y)))
	return img
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newFrame()

	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Parallax"))

	drawer.Dot = fixed.P(10, 43)
	drawer.DrawBytes([]byte("Steering"))

	return img
}
