package model

import (
	"testing"
	"time"
)

func TestComputeFingerprintSensitivity(t *testing.T) {
	base := ComputeFingerprint("/data/region.pbf", 1024, time.Unix(1000, 0), []string{"amenity"}, nil)

	cases := []Fingerprint{
		ComputeFingerprint("/data/other.pbf", 1024, time.Unix(1000, 0), []string{"amenity"}, nil),
		ComputeFingerprint("/data/region.pbf", 2048, time.Unix(1000, 0), []string{"amenity"}, nil),
		ComputeFingerprint("/data/region.pbf", 1024, time.Unix(2000, 0), []string{"amenity"}, nil),
		ComputeFingerprint("/data/region.pbf", 1024, time.Unix(1000, 0), []string{"highway"}, nil),
		ComputeFingerprint("/data/region.pbf", 1024, time.Unix(1000, 0), []string{"amenity"}, []string{"name"}),
	}
	for i, c := range cases {
		if c == base {
			t.Errorf("case %d: fingerprint unexpectedly matched base", i)
		}
	}
}

func TestComputeFingerprintStable(t *testing.T) {
	a := ComputeFingerprint("/data/region.pbf", 1024, time.Unix(1000, 0), []string{"amenity", "shop"}, []string{"name"})
	b := ComputeFingerprint("/data/region.pbf", 1024, time.Unix(1000, 0), []string{"amenity", "shop"}, []string{"name"})
	if a != b {
		t.Fatalf("identical inputs produced different fingerprints: %d != %d", a, b)
	}
}
