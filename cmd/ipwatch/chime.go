package main

import (
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	log "github.com/sirupsen/logrus"
)

const (
	chimeSampleRate = beep.SampleRate(44100)
	chimeOK         = 880
	chimeFail       = 220
)

// chime plays a short tone per completed lookup
// A missing audio device leaves it silent
type chime struct {
	ready bool
}

func newChime(enabled bool) *chime {
	c := &chime{}
	if !enabled {
		return c
	}
	if err := speaker.Init(chimeSampleRate, chimeSampleRate.N(time.Second/10)); err != nil {
		log.WithError(err).Warn("Audio initialization failed, continuing without sound")
		return c
	}
	c.ready = true
	return c
}

func (c *chime) play(ok bool) {
	if !c.ready {
		return
	}
	var freq float64 = chimeOK
	if !ok {
		freq = chimeFail
	}
	sine, err := generators.SineTone(chimeSampleRate, freq)
	if err != nil {
		log.WithError(err).Debug("Tone generation failed")
		return
	}
	speaker.Play(beep.Take(chimeSampleRate.N(60*time.Millisecond), sine))
}

func (c *chime) close() {
	if c.ready {
		speaker.Close()
		c.ready = false
	}
}
