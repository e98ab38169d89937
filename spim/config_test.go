package spim

import "testing"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Frequency != Freq1M {
		t.Errorf("Frequency = %v, want Freq1M", cfg.Frequency)
	}
	for name, pin := range map[string]uint32{
		"SCK": cfg.SCK, "MISO": cfg.MISO, "MOSI": cfg.MOSI, "SS": cfg.SS,
	} {
		if pin != PinDisconnected {
			t.Errorf("%s = %#x, want disconnected", name, pin)
		}
	}
	if cfg.IRQPriority != PriorityLow {
		t.Errorf("IRQPriority = %d, want %d", cfg.IRQPriority, PriorityLow)
	}
	if cfg.Order != LSBFirst || cfg.Polarity != ActiveHigh || cfg.Phase != Leading {
		t.Errorf("order/polarity/phase not at defaults: %+v", cfg)
	}
	if cfg.DisableAllIRQ {
		t.Error("DisableAllIRQ should default to false")
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("default config failed validation: %v", err)
	}
}

func TestFrequencyHz(t *testing.T) {
	cases := map[Frequency]uint32{
		Freq125K: 125_000,
		Freq250K: 250_000,
		Freq500K: 500_000,
		Freq1M:   1_000_000,
		Freq2M:   2_000_000,
		Freq4M:   4_000_000,
		Freq8M:   8_000_000,
	}
	for f, want := range cases {
		if got := f.Hz(); got != want {
			t.Errorf("%v.Hz() = %d, want %d", f, got, want)
		}
	}
}

func TestConfigMode(t *testing.T) {
	cases := []struct {
		pol  Polarity
		ph   Phase
		want uint8
	}{
		{ActiveHigh, Leading, 0},
		{ActiveHigh, Trailing, 1},
		{ActiveLow, Leading, 2},
		{ActiveLow, Trailing, 3},
	}
	for _, c := range cases {
		cfg := Config{Polarity: c.pol, Phase: c.ph}
		if got := cfg.Mode(); got != c.want {
			t.Errorf("mode(%v,%v) = %d, want %d", c.pol, c.ph, got, c.want)
		}
	}
}

func TestValidatePins(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SCK, cfg.MISO, cfg.MOSI, cfg.SS = 1, 2, 3, 4
	if err := cfg.validate(); err != nil {
		t.Errorf("distinct pins rejected: %v", err)
	}

	cfg.MISO = 1
	if err := cfg.validate(); err == nil {
		t.Error("duplicate connected pins must be rejected")
	}

	// Several disconnected sentinels never collide with each other.
	cfg = DefaultConfig()
	cfg.SCK = 7
	if err := cfg.validate(); err != nil {
		t.Errorf("sentinels treated as colliding: %v", err)
	}
}
