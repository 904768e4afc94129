package entity

// Mark is the per-letter feedback for a guess.
type Mark string

const (
	MarkCorrect Mark = "correct"
	MarkPresent Mark = "present"
	MarkMiss    Mark = "miss"
)

type GuessResult struct {
	Marks  []Mark `json:"marks"`
	Solved bool   `json:"solved"`
}

func AllCorrect(marks []Mark) bool {
	if len(marks) == 0 {
		return false
	}

	for _, mark := range marks {
		if mark != MarkCorrect {
			return false
		}
	}

	return true
}
