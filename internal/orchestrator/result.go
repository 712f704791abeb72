package orchestrator

import "github.com/jaki95/spotify-downloader/internal/domain"

// BatchResult lists every track's outcome in catalog order.
type BatchResult struct {
	Kind           domain.CollectionKind `json:"kind"`
	CollectionName string                `json:"collection_name"`
	Format         domain.Format         `json:"format"`
	Partial        bool                  `json:"partial"`
	Outcomes       []domain.Outcome      `json:"outcomes"`
}

func (b *BatchResult) Succeeded() int {
	n := 0
	for i := range b.Outcomes {
		if b.Outcomes[i].Succeeded() {
			n++
		}
	}
	return n
}

func (b *BatchResult) Failed() int {
	return len(b.Outcomes) - b.Succeeded()
}

// LastFilePath is the path of the last track that was fetched, or "".
func (b *BatchResult) LastFilePath() string {
	for i := len(b.Outcomes) - 1; i >= 0; i-- {
		if b.Outcomes[i].Succeeded() {
			return b.Outcomes[i].FilePath
		}
	}
	return ""
}

// Files returns the final location of every successful track.
func (b *BatchResult) Files() []string {
	var files []string
	for _, o := range b.Outcomes {
		if !o.Succeeded() {
			continue
		}
		if o.Published != "" {
			files = append(files, o.Published)
		} else {
			files = append(files, o.FilePath)
		}
	}
	return files
}
