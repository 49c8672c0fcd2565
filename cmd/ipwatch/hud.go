package main

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/ecshttp/core"
	"github.com/lixenwraith/ecshttp/engine"
	"github.com/lixenwraith/ecshttp/httpclient"
	"github.com/lixenwraith/ecshttp/status"
)

// IpInfo is the body returned by the IP echo service
type IpInfo struct {
	IP string `json:"ip"`
}

var (
	styleTitle = tcell.StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleLabel = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleValue = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	styleOK    = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleErr   = tcell.StyleDefault.Foreground(tcell.ColorRed)
)

// hudState is what the observers on the HUD entity record
type hudState struct {
	ip        string
	lastErr   string
	updated   time.Time
	lookups   int
	rawStatus string
}

// hud draws lookup state and plugin metrics on the tick goroutine
type hud struct {
	screen tcell.Screen
	entity core.Entity
	url    string
	every  time.Duration
	chime  *chime
	reg    *status.Registry

	state    hudState
	nextPoll time.Time
}

func newHUD(app *engine.App, screen tcell.Screen, url string, every time.Duration, ch *chime) *hud {
	w := app.World
	h := &hud{
		screen: screen,
		entity: w.CreateEntity(),
		url:    url,
		every:  every,
		chime:  ch,
		reg:    app.Status,
	}

	engine.Observe[httpclient.TypedResponse[IpInfo]](w, h.entity,
		func(_ *engine.World, _ core.Entity, ev httpclient.TypedResponse[IpInfo]) {
			h.state.ip = ev.Value.IP
			h.state.lastErr = ""
			h.state.updated = time.Now()
			h.state.lookups++
			h.chime.play(true)
		})
	engine.Observe[httpclient.TypedResponseError[IpInfo]](w, h.entity,
		func(_ *engine.World, _ core.Entity, ev httpclient.TypedResponseError[IpInfo]) {
			h.state.lastErr = ev.Error()
			h.state.updated = time.Now()
			h.state.lookups++
			h.chime.play(false)
		})

	return h
}

func (h *hud) Name() string  { return "ipwatch.hud" }
func (h *hud) Priority() int { return engine.PriorityLast }

func (h *hud) Update(w *engine.World) {
	tick := engine.MustGetResource[*engine.TickResource](w.Resources)
	if !tick.Now.Before(h.nextPoll) {
		h.poll(w)
		h.nextPoll = tick.Now.Add(h.every)
	}

	// Raw refreshes land as components on the HUD entity
	if resp, ok := engine.GetStore[httpclient.HTTPResponse](w).Take(h.entity); ok {
		h.state.rawStatus = fmt.Sprintf("%d %s (%d bytes)", resp.Response.Status, resp.Response.StatusText, len(resp.Response.Bytes))
	}
	if rerr, ok := engine.GetStore[httpclient.HTTPResponseError](w).Take(h.entity); ok {
		h.state.rawStatus = "error: " + rerr.Err
	}

	h.draw()
}

func (h *hud) poll(w *engine.World) {
	req, err := httpclient.Typed[IpInfo](httpclient.NewWithEntity(h.entity).Get(h.url))
	if err != nil {
		h.state.lastErr = err.Error()
		return
	}
	engine.SendMessage(w, *req)
}

// refreshRequest builds an untyped request for Submit from the input goroutine
func (h *hud) refreshRequest() (*httpclient.HTTPRequest, error) {
	return httpclient.NewWithEntity(h.entity).Get(h.url).Build()
}

func (h *hud) draw() {
	s := h.screen
	s.Clear()

	y := 0
	drawText(s, 1, y, styleTitle, "ipwatch")
	y += 2

	ip := h.state.ip
	if ip == "" {
		ip = "(waiting)"
	}
	y = drawField(s, y, "public ip", ip, styleOK)
	if h.state.lastErr != "" {
		y = drawField(s, y, "last error", h.state.lastErr, styleErr)
	}
	if !h.state.updated.IsZero() {
		y = drawField(s, y, "updated", h.state.updated.Format("15:04:05"), styleValue)
	}
	y = drawField(s, y, "lookups", fmt.Sprint(h.state.lookups), styleValue)
	if h.state.rawStatus != "" {
		y = drawField(s, y, "refresh", h.state.rawStatus, styleValue)
	}
	y++

	for _, line := range h.reg.Snapshot() {
		y = drawField(s, y, line.Key, fmt.Sprint(line.Value), styleValue)
	}
	y++
	drawText(s, 1, y, styleLabel, "r: refresh  q/esc: quit")

	s.Show()
}

func drawField(s tcell.Screen, y int, label, value string, style tcell.Style) int {
	drawText(s, 1, y, styleLabel, label)
	drawText(s, 22, y, style, value)
	return y + 1
}

func drawText(s tcell.Screen, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		s.SetContent(x, y, r, nil, style)
		x++
	}
}
