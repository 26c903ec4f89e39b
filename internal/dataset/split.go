package dataset

import (
	"cmp"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/churnlab/churnprep/internal/table"
)

// StratifiedSplit partitions the rows of t into train and validation indices.
// Within each label class round(fraction*n) rows, chosen by a PCG stream
// seeded with seed, go to validation. Both index lists are ascending so the
// partitions keep the row order of t. Rows with a null label are a data error
// the dataset gate reports; they are placed in train.
func StratifiedSplit(t *table.Table, label string, fraction float64, seed uint64) (train, validation []int, err error) {
	if !t.HasColumn(label) {
		return nil, nil, integrity("cannot stratify on missing column %s", label)
	}

	classes := make(map[string][]int)
	for i := 0; i < t.Len(); i++ {
		v := t.Get(i, label)
		if v.IsNull() {
			continue
		}
		key := v.String()
		classes[key] = append(classes[key], i)
	}

	keys := make([]string, 0, len(classes))
	for k := range classes {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, cmp.Compare[string])

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	inValidation := make([]bool, t.Len())
	for _, k := range keys {
		rows := slices.Clone(classes[k])
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
		n := int(math.Round(fraction * float64(len(rows))))
		for _, r := range rows[:n] {
			inValidation[r] = true
		}
	}

	for i := 0; i < t.Len(); i++ {
		if inValidation[i] {
			validation = append(validation, i)
		} else {
			train = append(train, i)
		}
	}
	return train, validation, nil
}
