package synthetic

import (
	"math"
	"math/rand"

	"github.com/ianfajar-codes/SPS-Enose-Project/message"
	"github.com/ianfajar-codes/SPS-Enose-Project/processor/normalizer"
)

// Profile is the baseline of a sample type.
type Profile struct {
	CO  float64
	Eth float64
	VOC float64
	NO2 float64
}

var profiles = map[string]Profile{
	"Daun Kari":    {CO: 45, Eth: 25, VOC: 60, NO2: 5},
	"Daun Kemangi": {CO: 38, Eth: 32, VOC: 55, NO2: 6.5},
	"Daun Jeruk":   {CO: 52, Eth: 20, VOC: 70, NO2: 4.2},
	"Daun Serai":   {CO: 40, Eth: 28, VOC: 65, NO2: 5.8},
}

// ProfileFor returns the baseline for a sample label. Unknown samples use
// the Daun Kari baseline.
func ProfileFor(sample string) Profile {
	if p, ok := profiles[normalizer.CanonicalSample(sample)]; ok {
		return p
	}
	return profiles["Daun Kari"]
}

// MotorFactor combines the two motor speeds, in percent, into one scale.
func MotorFactor(m1, m2 int) float64 {
	return float64(m1)/100*0.6 + float64(m2)/100*0.4
}

// Synthesize builds the n-th reading for a profile at the given motor
// speeds. rng supplies the jitter.
func Synthesize(p Profile, n int, m1, m2 int, rng *rand.Rand) message.SensorReading {
	cf := MotorFactor(m1, m2)
	gain := 0.6 + cf*0.6
	noise := math.Sin(float64(n)*0.03) * 1.5

	return message.SensorReading{
		COM:   p.CO*gain + uniform(rng, 2.5) + noise,
		EthM:  p.Eth*gain + uniform(rng, 1.8) + noise*0.5,
		VOCM:  p.VOC*gain + uniform(rng, 4.0) + noise*0.7,
		NO2:   p.NO2*(0.7+cf*0.4) + uniform(rng, 0.8),
		EthGM: p.Eth*1.35*gain + uniform(rng, 2.2),
		VOCGM: p.VOC*0.92*gain + uniform(rng, 3.5),
		COGM:  p.CO*1.12*gain + uniform(rng, 2.8),
	}
}

// uniform returns a value in [-span, span).
func uniform(rng *rand.Rand, span float64) float64 {
	return (rng.Float64()*2 - 1) * span
}
