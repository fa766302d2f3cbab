package pattern

import (
	"math"

	"github.com/Alias1177/Predictor/internal/model"
)

// Pattern names a price action formation
type Pattern string

const (
	BullishEngulfing      Pattern = "BULLISH_ENGULFING"
	BearishEngulfing      Pattern = "BEARISH_ENGULFING"
	Hammer                Pattern = "HAMMER"
	ShootingStar          Pattern = "SHOOTING_STAR"
	ThreeWhiteSoldiers    Pattern = "THREE_WHITE_SOLDIERS"
	ThreeBlackCrows       Pattern = "THREE_BLACK_CROWS"
	Doji                  Pattern = "DOJI"
	StrongBullishMomentum Pattern = "STRONG_BULLISH_MOMENTUM"
	StrongBearishMomentum Pattern = "STRONG_BEARISH_MOMENTUM"
	MorningStar           Pattern = "MORNING_STAR"
	EveningStar           Pattern = "EVENING_STAR"
	DoubleTop             Pattern = "DOUBLE_TOP"
	DoubleBottom          Pattern = "DOUBLE_BOTTOM"
)

// MinBars is the shortest window Detect looks at
const MinBars = 5

var bias = map[Pattern]float64{
	BullishEngulfing:      1,
	Hammer:                1,
	ThreeWhiteSoldiers:    1,
	StrongBullishMomentum: 1,
	MorningStar:           1,
	DoubleBottom:          1,
	BearishEngulfing:      -1,
	ShootingStar:          -1,
	ThreeBlackCrows:       -1,
	StrongBearishMomentum: -1,
	EveningStar:           -1,
	DoubleTop:             -1,
}

// Bias is +1 for bullish formations, -1 for bearish and 0 for indecision
func (p Pattern) Bias() float64 {
	return bias[p]
}

// Match is a detected pattern with its strength in [0, 1]
type Match struct {
	Pattern  Pattern `json:"pattern"`
	Strength float64 `json:"strength"`
}

type bar struct {
	model.Candle
	body, upper, lower float64
	bullish, bearish   bool
}

func newBar(c model.Candle) bar {
	return bar{
		Candle:  c,
		body:    math.Abs(c.Close - c.Open),
		upper:   c.High - math.Max(c.Open, c.Close),
		lower:   math.Min(c.Open, c.Close) - c.Low,
		bullish: c.Close > c.Open,
		bearish: c.Close < c.Open,
	}
}

// Detect finds the formations completed by the last bar
func Detect(candles []model.Candle) []Match {
	if len(candles) < MinBars {
		return nil
	}

	n := len(candles)
	var recent [MinBars]bar
	avgBody := 0.0
	for i := range recent {
		recent[i] = newBar(candles[n-MinBars+i])
		avgBody += recent[i].body
	}
	avgBody /= MinBars
	first, mid, last := recent[2], recent[3], recent[4]

	var matches []Match
	add := func(p Pattern, strength float64) {
		matches = append(matches, Match{Pattern: p, Strength: model.Clamp(strength, 0, 1)})
	}

	if last.bullish && mid.bearish && last.Open < mid.Close && last.Close > mid.Open && last.body > mid.body*1.2 {
		add(BullishEngulfing, engulfStrength(mid, last))
	}
	if last.bearish && mid.bullish && last.Open > mid.Close && last.Close < mid.Open && last.body > mid.body*1.2 {
		add(BearishEngulfing, engulfStrength(mid, last))
	}

	if last.lower > last.body*2 && last.upper < last.body*0.5 {
		add(Hammer, wickStrength(last.lower, last))
	}
	if last.upper > last.body*2 && last.lower < last.body*0.5 {
		add(ShootingStar, wickStrength(last.upper, last))
	}

	if first.bullish && mid.bullish && last.bullish {
		add(ThreeWhiteSoldiers, consistency(first, mid, last))
	}
	if first.bearish && mid.bearish && last.bearish {
		add(ThreeBlackCrows, consistency(first, mid, last))
	}

	if last.body < avgBody*0.3 && (last.upper > last.body || last.lower > last.body) {
		strength := 0.0
		if r := last.High - last.Low; r > 0 {
			strength = 1 - last.body/r
		}
		add(Doji, strength)
	}

	if last.body > avgBody*1.5 && last.lower < last.body*0.2 && last.upper < last.body*0.2 {
		strength := last.body/avgBody - 1
		if last.bullish {
			add(StrongBullishMomentum, strength)
		} else {
			add(StrongBearishMomentum, strength)
		}
	}

	if n >= 7 && mid.body < avgBody*0.3 && first.body > avgBody && last.body > avgBody {
		midpoint := first.Open + (first.Close-first.Open)/2
		if first.bullish && mid.Open > first.Close && last.bearish && last.Close < midpoint {
			add(EveningStar, starStrength(first, mid, last))
		}
		if first.bearish && mid.Open < first.Close && last.bullish && last.Close > midpoint {
			add(MorningStar, starStrength(first, mid, last))
		}
	}

	matches = append(matches, doubleTopBottom(candles, avgBody)...)
	return matches
}

func engulfStrength(prev, cur bar) float64 {
	if prev.body == 0 {
		return 1
	}
	return cur.body/prev.body - 1
}

func wickStrength(wick float64, b bar) float64 {
	r := b.High - b.Low
	if r == 0 {
		return 0
	}
	return wick / r
}

func consistency(bars ...bar) float64 {
	avg := 0.0
	for _, b := range bars {
		avg += b.body
	}
	avg /= float64(len(bars))
	if avg == 0 {
		return 0
	}
	diff := 0.0
	for _, b := range bars {
		diff += math.Abs(b.body - avg)
	}
	return 1 - diff/(avg*float64(len(bars)))
}

func starStrength(first, mid, last bar) float64 {
	outer := (first.body + last.body) / 2
	if outer == 0 {
		return 0
	}
	return 1 - mid.body/outer
}

// doubleTopBottom looks for two swing extremes of similar height with price
// closing beyond the swing between them
func doubleTopBottom(candles []model.Candle, avgBody float64) []Match {
	if len(candles) < 10 {
		return nil
	}
	lastClose := candles[len(candles)-1].Close

	var matches []Match
	if prev, last, ok := lastTwoSwings(candles, func(c model.Candle) float64 { return c.High }, true); ok &&
		math.Abs(candles[last].High-candles[prev].High) < avgBody*0.5 {
		valley := candles[prev].High
		for i := prev + 1; i < last; i++ {
			valley = math.Min(valley, candles[i].Low)
		}
		if lastClose < valley {
			matches = append(matches, Match{Pattern: DoubleTop, Strength: 0.5})
		}
	}

	if prev, last, ok := lastTwoSwings(candles, func(c model.Candle) float64 { return c.Low }, false); ok &&
		math.Abs(candles[last].Low-candles[prev].Low) < avgBody*0.5 {
		peak := candles[prev].Low
		for i := prev + 1; i < last; i++ {
			peak = math.Max(peak, candles[i].High)
		}
		if lastClose > peak {
			matches = append(matches, Match{Pattern: DoubleBottom, Strength: 0.5})
		}
	}
	return matches
}

// lastTwoSwings returns the two most recent 2-bar swing highs (or lows) at least 3 bars apart
func lastTwoSwings(candles []model.Candle, value func(model.Candle) float64, high bool) (int, int, bool) {
	var swings []int
	for i := 2; i < len(candles)-2; i++ {
		v := value(candles[i])
		swing := true
		for _, j := range []int{i - 2, i - 1, i + 1, i + 2} {
			other := value(candles[j])
			if (high && v <= other) || (!high && v >= other) {
				swing = false
				break
			}
		}
		if swing {
			swings = append(swings, i)
		}
	}
	if len(swings) < 2 {
		return 0, 0, false
	}
	prev, last := swings[len(swings)-2], swings[len(swings)-1]
	return prev, last, last-prev >= 3
}

// Score nets the detected patterns into a direction in [-1, 1] and a confidence in [0, 1]
func Score(matches []Match) (float64, float64) {
	var sum, weight float64
	for _, m := range matches {
		b := m.Pattern.Bias()
		if b == 0 {
			continue
		}
		sum += b * m.Strength
		weight += m.Strength
	}
	if weight == 0 {
		return 0, 0
	}
	direction := sum / weight
	return direction, model.Clamp(math.Abs(sum)/float64(len(matches)), 0, 1)
}
