package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LECTOR_RATE", "LECTOR_PITCH", "LECTOR_VOICE",
		"LECTOR_AUTO_TURN", "LECTOR_AUTO_CONTINUE",
		"PIPER_PATH", "PIPER_MODEL", "AUDIO_PLAYER",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Rate != 1.0 {
		t.Errorf("Rate = %v, want 1.0", cfg.Rate)
	}
	if cfg.Pitch != 1.0 {
		t.Errorf("Pitch = %v, want 1.0", cfg.Pitch)
	}
	if !cfg.AutoPageTurn || !cfg.AutoContinue {
		t.Errorf("AutoPageTurn = %v, AutoContinue = %v, want both true", cfg.AutoPageTurn, cfg.AutoContinue)
	}
	if cfg.PiperPath != "piper" || cfg.AudioPlayer != "aplay" {
		t.Errorf("PiperPath = %q, AudioPlayer = %q", cfg.PiperPath, cfg.AudioPlayer)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "text" {
		t.Errorf("LogLevel = %q, LogFormat = %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LECTOR_RATE", "1.5")
	t.Setenv("LECTOR_VOICE", "amy")
	t.Setenv("LECTOR_AUTO_CONTINUE", "false")
	t.Setenv("PIPER_MODEL", "/models/en.onnx")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Rate != 1.5 {
		t.Errorf("Rate = %v, want 1.5", cfg.Rate)
	}
	if cfg.Voice != "amy" {
		t.Errorf("Voice = %q, want amy", cfg.Voice)
	}
	if cfg.AutoContinue {
		t.Error("AutoContinue = true, want false")
	}
	if cfg.PiperModel != "/models/en.onnx" {
		t.Errorf("PiperModel = %q", cfg.PiperModel)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" {
		t.Errorf("LogLevel = %q, LogFormat = %q", cfg.LogLevel, cfg.LogFormat)
	}
}

func TestLoadMalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LECTOR_RATE", "fast")
	t.Setenv("LECTOR_AUTO_TURN", "yes please")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Rate != 1.0 {
		t.Errorf("Rate = %v, want default 1.0", cfg.Rate)
	}
	if !cfg.AutoPageTurn {
		t.Error("AutoPageTurn = false, want default true")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"rate too high", map[string]string{"LECTOR_RATE": "5.0"}, "LECTOR_RATE"},
		{"rate too low", map[string]string{"LECTOR_RATE": "0.1"}, "LECTOR_RATE"},
		{"pitch out of range", map[string]string{"LECTOR_PITCH": "3.0"}, "LECTOR_PITCH"},
		{
			"continue without turn",
			map[string]string{"LECTOR_AUTO_TURN": "false", "LECTOR_AUTO_CONTINUE": "true"},
			"LECTOR_AUTO_CONTINUE",
		},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "LOG_LEVEL"},
		{"bad log format", map[string]string{"LOG_FORMAT": "xml"}, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatal("Load succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
