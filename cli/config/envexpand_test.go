package config

import (
	"testing"
)

func TestExpandEnv_SetVar(t *testing.T) {
	t.Setenv("PLACEBACK_TEST", "hello")

	got := ExpandEnv("value: ${PLACEBACK_TEST}")
	want := "value: hello"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_UnsetVar(t *testing.T) {
	got := ExpandEnv("value: ${PLACEBACK_UNSET_VAR}")
	want := "value: "
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultUsedWhenUnset(t *testing.T) {
	got := ExpandEnv("value: ${PLACEBACK_UNSET_VAR:-fallback}")
	want := "value: fallback"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultIgnoredWhenSet(t *testing.T) {
	t.Setenv("PLACEBACK_TEST", "real")

	got := ExpandEnv("value: ${PLACEBACK_TEST:-fallback}")
	want := "value: real"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_DefaultUsedWhenEmpty(t *testing.T) {
	t.Setenv("PLACEBACK_TEST", "")

	got := ExpandEnv("value: ${PLACEBACK_TEST:-fallback}")
	want := "value: fallback"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_MultipleVars(t *testing.T) {
	t.Setenv("BOUND_X", "448")
	t.Setenv("BOUND_Y", "646")

	got := ExpandEnv("${BOUND_X}:${BOUND_Y}")
	want := "448:646"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestExpandEnv_NoVars(t *testing.T) {
	input := "no variables here"
	got := ExpandEnv(input)
	if got != input {
		t.Errorf("got %q, want %q", got, input)
	}
}

func TestExpandEnv_ConfigDocument(t *testing.T) {
	t.Setenv("PLACE_DATA", "/data/place")
	t.Setenv("PLACE_BUCKET", "frames")

	input := `dataset:
  dir: ${PLACE_DATA}
  prefix: ${PLACE_PREFIX:-2022_place_canvas_history}
output:
  backend: s3
  path: ${PLACE_BUCKET}/timelapse`

	got := ExpandEnv(input)
	want := `dataset:
  dir: /data/place
  prefix: 2022_place_canvas_history
output:
  backend: s3
  path: frames/timelapse`

	if got != want {
		t.Errorf("got:\n%s\nwant:\n%s", got, want)
	}
}
