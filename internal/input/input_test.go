package input

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func TestJustPressedLastsOneFrame(t *testing.T) {
	im := NewInputManager()
	im.HandleKeyEvent(glfw.KeyR, glfw.Press)
	if !im.JustPressed(ActionFlush) || !im.IsActive(ActionFlush) {
		t.Fatal("R should press ActionFlush")
	}
	im.PostUpdate()
	if im.JustPressed(ActionFlush) {
		t.Error("edge flag survived PostUpdate")
	}
	if !im.IsActive(ActionFlush) {
		t.Error("held key released by PostUpdate")
	}
	im.HandleKeyEvent(glfw.KeyR, glfw.Repeat)
	if im.JustPressed(ActionFlush) {
		t.Error("repeat should not re-trigger")
	}
	im.HandleKeyEvent(glfw.KeyR, glfw.Release)
	if im.IsActive(ActionFlush) {
		t.Error("release ignored")
	}
}

func TestMovementCombinesKeys(t *testing.T) {
	im := NewInputManager()
	im.HandleKeyEvent(glfw.KeyUp, glfw.Press)
	im.HandleKeyEvent(glfw.KeyLeft, glfw.Press)
	if dx, dz := im.Movement(); dx != -1 || dz != -1 {
		t.Errorf("got (%v, %v), want (-1, -1)", dx, dz)
	}
	im.HandleKeyEvent(glfw.KeyDown, glfw.Press)
	if dx, dz := im.Movement(); dx != -1 || dz != 0 {
		t.Errorf("opposing keys: got (%v, %v), want (-1, 0)", dx, dz)
	}
}

func TestUnboundKeysAreIgnored(t *testing.T) {
	im := NewInputManager()
	im.UnbindKey(glfw.KeyEscape)
	im.HandleKeyEvent(glfw.KeyEscape, glfw.Press)
	if im.IsActive(ActionQuit) {
		t.Error("unbound key still active")
	}
	im.BindKey(glfw.KeyQ, ActionQuit)
	im.HandleKeyEvent(glfw.KeyQ, glfw.Press)
	if !im.IsActive(ActionQuit) {
		t.Error("rebound key inactive")
	}
}

func TestUpMovesAwayFromCamera(t *testing.T) {
	for _, key := range []glfw.Key{glfw.KeyUp, glfw.KeyW} {
		im := NewInputManager()
		im.HandleKeyEvent(key, glfw.Press)
		if dx, dz := im.Movement(); dx != 0 || dz != -1 {
			t.Errorf("key %v: got (%v, %v), want (0, -1)", key, dx, dz)
		}
	}
	for _, key := range []glfw.Key{glfw.KeyDown, glfw.KeyS} {
		im := NewInputManager()
		im.HandleKeyEvent(key, glfw.Press)
		if dx, dz := im.Movement(); dx != 0 || dz != 1 {
			t.Errorf("key %v: got (%v, %v), want (0, 1)", key, dx, dz)
		}
	}
}
