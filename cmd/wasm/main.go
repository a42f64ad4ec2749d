//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"syscall/js"

	"github.com/berrynet/berrynet/client-go/internal/collab"
	"github.com/berrynet/berrynet/client-go/internal/engine"
	"github.com/berrynet/berrynet/client-go/internal/geometry"
	"github.com/berrynet/berrynet/client-go/internal/mover"
)

var (
	eng    *engine.Engine
	cancel context.CancelFunc = func() {}
)

func main() {
	// The host page owns the EventSource and forwards every event here;
	// moves go out through net/http, which uses fetch under js/wasm.
	berrynet := js.Global().Get("Object").New()

	// --- Commands (page → engine) ---
	berrynet.Set("connect", js.FuncOf(connect))
	berrynet.Set("disconnect", js.FuncOf(disconnect))
	berrynet.Set("setConnected", js.FuncOf(setConnected))
	berrynet.Set("handleEvent", js.FuncOf(handleEvent))
	berrynet.Set("pointerDown", js.FuncOf(pointerDown))

	// --- Queries (page ← engine) ---
	berrynet.Set("render", js.FuncOf(render))
	berrynet.Set("getStatus", js.FuncOf(getStatus))
	berrynet.Set("getSelf", js.FuncOf(getSelf))

	js.Global().Set("berrynet", berrynet)
	js.Global().Set("berrynetWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

// --- Command Handlers ---

// connect starts a fresh session against the server at args[0]. Any previous
// session is discarded.
func connect(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeString {
		return js.ValueOf(map[string]interface{}{"error": "missing server url"})
	}
	cancel()
	ctx, c := context.WithCancel(context.Background())

	mv, err := mover.New(ctx, args[0].String(), mover.Options{Retries: 2})
	if err != nil {
		c()
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	cancel = c
	eng = engine.New(mv, engine.Options{Log: slog.Default()})
	return js.ValueOf(map[string]interface{}{"ok": true, "session": eng.SessionID()})
}

func disconnect(this js.Value, args []js.Value) interface{} {
	cancel()
	if eng != nil {
		eng.SetStatus(collab.Disconnected)
	}
	eng = nil
	return nil
}

func setConnected(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 1 {
		return nil
	}
	if args[0].Bool() {
		eng.SetStatus(collab.Connected)
	} else {
		eng.SetStatus(collab.Disconnected)
	}
	return nil
}

func handleEvent(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 2 {
		return nil
	}
	err := eng.HandleEvent(collab.Event{Type: args[0].String(), Data: []byte(args[1].String())})
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf(map[string]interface{}{"error": "not connected"})
	}
	if len(args) < 4 {
		return js.ValueOf(map[string]interface{}{"error": "expected px, py, width, height"})
	}
	vp := geometry.Viewport{Width: args[2].Float(), Height: args[3].Float()}
	intent, err := eng.PointerDown(args[0].Float(), args[1].Float(), vp)
	if err != nil {
		return js.ValueOf(map[string]interface{}{"error": err.Error()})
	}
	return js.ValueOf(map[string]interface{}{
		"ok":   true,
		"move": intent.ID,
		"x":    intent.Location.X,
		"y":    intent.Location.Y,
	})
}

// --- Query Handlers ---

func render(this js.Value, args []js.Value) interface{} {
	if eng == nil || len(args) < 2 {
		return js.ValueOf("[]")
	}
	return js.ValueOf(eng.RenderJSON(geometry.Viewport{Width: args[0].Float(), Height: args[1].Float()}))
}

func getStatus(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.ValueOf(`{"status":"Disconnected","participants":0}`)
	}
	data, err := json.Marshal(eng.Snapshot())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func getSelf(this js.Value, args []js.Value) interface{} {
	if eng == nil {
		return js.Null()
	}
	self, ok := eng.Self()
	if !ok {
		return js.Null()
	}
	return js.ValueOf(self)
}
