package gaze

import "testing"

func TestDecodeSample(t *testing.T) {
	conf := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		raw     string
		wantOK  bool
		wantX   float64
		wantY   float64
		wantTS  int64
		wantCnf *float64
	}{
		{
			name:    "canonical keys",
			raw:     `{"x":0.25,"y":0.75,"confidence":0.9,"device_time_ns":1712345678901234567}`,
			wantOK:  true,
			wantX:   0.25,
			wantY:   0.75,
			wantTS:  1712345678901234567,
			wantCnf: conf(0.9),
		},
		{
			name:    "data envelope with aliases",
			raw:     `{"data":{"gx":0.1,"gy":0.2,"conf":0.5,"timestamp_unix_ns":1712345678901234567}}`,
			wantOK:  true,
			wantX:   0.1,
			wantY:   0.2,
			wantTS:  1712345678901234567,
			wantCnf: conf(0.5),
		},
		{
			name:    "norm_pos fallback with validity",
			raw:     `{"norm_pos":{"x":0.3,"y":0.4},"validity":1}`,
			wantOK:  true,
			wantX:   0.3,
			wantY:   0.4,
			wantCnf: conf(1),
		},
		{
			name:   "gaze aliases with short timestamp key",
			raw:    `{"gaze_x":0.6,"gaze_y":0.7,"t":1500000000}`,
			wantOK: true,
			wantX:  0.6,
			wantY:  0.7,
			wantTS: 1500000000,
		},
		{
			name:   "string encoded numbers",
			raw:    `{"x":"0.5","y":"0.25","ts":"1712345678901234567"}`,
			wantOK: true,
			wantX:  0.5,
			wantY:  0.25,
			wantTS: 1712345678901234567,
		},
		{
			name:   "float timestamp truncates",
			raw:    `{"x":0.1,"y":0.2,"t":1.5e9}`,
			wantOK: true,
			wantX:  0.1,
			wantY:  0.2,
			wantTS: 1500000000,
		},
		{
			name:   "missing y",
			raw:    `{"x":0.5,"confidence":0.9}`,
			wantOK: false,
		},
		{
			name:   "not an object",
			raw:    `[0.5,0.5]`,
			wantOK: false,
		},
		{
			name:   "not json",
			raw:    `gaze 0.5 0.5`,
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sample, ok := decodeSample([]byte(tc.raw))
			if ok != tc.wantOK {
				t.Fatalf("decodeSample ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if sample.X != tc.wantX || sample.Y != tc.wantY {
				t.Fatalf("position = (%v, %v), want (%v, %v)", sample.X, sample.Y, tc.wantX, tc.wantY)
			}
			if sample.TDeviceNS != tc.wantTS {
				t.Fatalf("device time = %d, want %d", sample.TDeviceNS, tc.wantTS)
			}
			if tc.wantCnf == nil {
				if sample.Conf != nil {
					t.Fatalf("confidence = %v, want unset", *sample.Conf)
				}
			} else {
				if sample.Conf == nil {
					t.Fatalf("confidence unset, want %v", *tc.wantCnf)
				}
				if *sample.Conf != *tc.wantCnf {
					t.Fatalf("confidence = %v, want %v", *sample.Conf, *tc.wantCnf)
				}
			}
		})
	}
}

func TestDecodeSampleKeepsNanosecondPrecision(t *testing.T) {
	// 2^53+1 is the first integer a float64 cannot hold. Device clocks sit
	// far above it, so a float64 path would corrupt every timestamp.
	sample, ok := decodeSample([]byte(`{"x":0,"y":0,"device_time_ns":9007199254740993}`))
	if !ok {
		t.Fatal("decodeSample rejected a valid sample")
	}
	if sample.TDeviceNS != 9007199254740993 {
		t.Fatalf("device time = %d, want 9007199254740993", sample.TDeviceNS)
	}
}
