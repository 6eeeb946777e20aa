package similarity_test

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/personamatch/engine/internal/personality"
	"github.com/personamatch/engine/internal/similarity"
)

func vec(o, c, e, a, n, h float64) personality.Vector {
	return personality.New(map[personality.Dimension]float64{
		personality.Openness:          o,
		personality.Conscientiousness: c,
		personality.Extraversion:      e,
		personality.Agreeableness:     a,
		personality.Neuroticism:       n,
		personality.HonestyHumility:   h,
	})
}

func randomVec(rng *rand.Rand) personality.Vector {
	return vec(rng.Float64()*100, rng.Float64()*100, rng.Float64()*100,
		rng.Float64()*100, rng.Float64()*100, rng.Float64()*100)
}

func TestApplyWeights(t *testing.T) {
	v := vec(10, 10, 10, 10, 10, 10)
	v = append(v, personality.Trait{Dimension: personality.Unknown, Label: "charisma", Score: 10})

	got := similarity.ApplyWeights(v)
	want := []float64{12, 10, 13, 14, 8, 11, 10}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("weighted[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestRemoveBias_Constant(t *testing.T) {
	got := similarity.RemoveBias([]float64{42, 42, 42, 42, 42, 42})
	for i, x := range got {
		if x != 0.5 {
			t.Errorf("RemoveBias constant[%d] = %f, want 0.5", i, x)
		}
	}
}

func TestRemoveBias_KnownValue(t *testing.T) {
	got := similarity.RemoveBias([]float64{0, 50, 100})
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Errorf("RemoveBias[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestRemoveBias_Empty(t *testing.T) {
	if got := similarity.RemoveBias(nil); len(got) != 0 {
		t.Errorf("RemoveBias(nil) = %v, want empty", got)
	}
}

func TestRemoveBias_Range(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		v := make([]float64, 6)
		for j := range v {
			v[j] = rng.Float64()*1000 - 500
		}
		for j, x := range similarity.RemoveBias(v) {
			if x < 0 || x > 1 {
				t.Fatalf("RemoveBias(%v)[%d] = %f, outside [0,1]", v, j, x)
			}
		}
	}
}

func TestCalculateMatchingScore_Identical(t *testing.T) {
	a := vec(80, 70, 90, 85, 30, 75)
	score, err := similarity.CalculateMatchingScore(a, a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score != 100 {
		t.Errorf("identical vectors: got %d, want 100", score)
	}
}

func TestCalculateMatchingScore_Options(t *testing.T) {
	a := vec(80, 70, 90, 85, 30, 75)
	b := vec(60, 90, 40, 75, 20, 95)

	raw, err := similarity.CalculateMatchingScore(a, b,
		similarity.WithWeights(false), similarity.WithBiasRemoval(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cos, _ := similarity.CosineSimilarity(a.Scores(), b.Scores())
	if want := int(math.Round(cos * 100)); raw != want {
		t.Errorf("raw score = %d, want %d", raw, want)
	}

	weighted, err := similarity.CalculateMatchingScore(a, b, similarity.WithBiasRemoval(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cos, _ = similarity.CosineSimilarity(similarity.ApplyWeights(a), similarity.ApplyWeights(b))
	if want := int(math.Round(cos * 100)); weighted != want {
		t.Errorf("weighted score = %d, want %d", weighted, want)
	}
}

func TestCalculateMatchingScore_UniformProfileIsNeutral(t *testing.T) {
	// Bias removal turns a flat profile into all-0.5, so it is never a
	// zero vector.
	flat := vec(50, 50, 50, 50, 50, 50)
	other := vec(80, 70, 90, 85, 30, 75)
	score, err := similarity.CalculateMatchingScore(flat, other, similarity.WithWeights(false))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if score <= 0 || score > 100 {
		t.Errorf("flat profile score = %d, want in (0,100]", score)
	}
}

func TestCalculateMatchingScore_LengthMismatch(t *testing.T) {
	a := vec(80, 70, 90, 85, 30, 75)
	_, err := similarity.CalculateMatchingScore(a, a[:5])
	if !errors.Is(err, similarity.ErrLengthMismatch) {
		t.Fatalf("err = %v, want ErrLengthMismatch", err)
	}
}

func TestCalculateMatchingScore_SymmetricAndBounded(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		a, b := randomVec(rng), randomVec(rng)
		ab, err := similarity.CalculateMatchingScore(a, b)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		ba, err := similarity.CalculateMatchingScore(b, a)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ab != ba {
			t.Fatalf("asymmetric score: %d vs %d", ab, ba)
		}
		if ab < 0 || ab > 100 {
			t.Fatalf("score %d outside [0,100]", ab)
		}
	}
}

func TestSortUsersByMatchingScore(t *testing.T) {
	current := vec(80, 70, 90, 85, 30, 75)
	users := []similarity.Candidate{
		{ID: "far", Data: vec(10, 95, 5, 20, 90, 10)},
		{ID: "same", Data: vec(80, 70, 90, 85, 30, 75)},
		{ID: "near", Data: vec(75, 65, 85, 80, 35, 70)},
		{ID: "broken", Data: vec(1, 2, 3, 4, 5, 6)[:3]},
	}

	got := similarity.SortUsersByMatchingScore(users, current)

	if len(got) != len(users) {
		t.Fatalf("len = %d, want %d", len(got), len(users))
	}
	if got[0].ID != "same" || got[0].Similarity != 100 {
		t.Errorf("first = %s (%d), want same (100)", got[0].ID, got[0].Similarity)
	}
	if got[len(got)-1].ID != "broken" || got[len(got)-1].Similarity != 0 {
		t.Errorf("last = %s (%d), want broken (0)", got[len(got)-1].ID, got[len(got)-1].Similarity)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Similarity > got[i-1].Similarity {
			t.Errorf("not sorted at %d: %d > %d", i, got[i].Similarity, got[i-1].Similarity)
		}
	}

	seen := map[string]bool{}
	for _, c := range got {
		seen[c.ID] = true
	}
	for _, u := range users {
		if !seen[u.ID] {
			t.Errorf("candidate %s missing from output", u.ID)
		}
		if u.Similarity != 0 {
			t.Errorf("input candidate %s was mutated", u.ID)
		}
	}
}

func TestGetMatchingGrade(t *testing.T) {
	cases := []struct {
		score int
		label string
	}{
		{100, "Perfect match"},
		{90, "Perfect match"},
		{89, "Great match"},
		{80, "Great match"},
		{79, "Good match"},
		{70, "Good match"},
		{69, "Fair match"},
		{60, "Fair match"},
		{59, "Worth exploring"},
		{0, "Worth exploring"},
	}
	for _, tc := range cases {
		if got := similarity.GetMatchingGrade(tc.score); got.Label != tc.label {
			t.Errorf("GetMatchingGrade(%d) = %q, want %q", tc.score, got.Label, tc.label)
		}
	}
}
