package services

import (
	"errors"
	"sort"

	"github.com/terraincognita07/easypeasy/internal/models"
)

var ErrInvalidChapter = errors.New("invalid chapter")

type ChapterSet map[int]struct{}

func NewChapterSet(chapters ...int) ChapterSet {
	set := make(ChapterSet, len(chapters))
	for _, chapter := range chapters {
		if ValidChapter(chapter) {
			set[chapter] = struct{}{}
		}
	}
	return set
}

func ValidChapter(chapter int) bool {
	return chapter >= 1 && chapter <= models.TotalChapters
}

func (set ChapterSet) Contains(chapter int) bool {
	_, ok := set[chapter]
	return ok
}

func (set ChapterSet) Len() int {
	return len(set)
}

func (set ChapterSet) Toggle(chapter int) (bool, error) {
	if !ValidChapter(chapter) {
		return false, ErrInvalidChapter
	}
	if set.Contains(chapter) {
		delete(set, chapter)
		return false, nil
	}
	set[chapter] = struct{}{}
	return true, nil
}

func (set ChapterSet) Clone() ChapterSet {
	clone := make(ChapterSet, len(set))
	for chapter := range set {
		clone[chapter] = struct{}{}
	}
	return clone
}

func (set ChapterSet) Sorted() []int {
	chapters := make([]int, 0, len(set))
	for chapter := range set {
		chapters = append(chapters, chapter)
	}
	sort.Ints(chapters)
	return chapters
}

func (set ChapterSet) Difference(other ChapterSet) []int {
	missing := make([]int, 0)
	for _, chapter := range set.Sorted() {
		if !other.Contains(chapter) {
			missing = append(missing, chapter)
		}
	}
	return missing
}

func (set ChapterSet) Percentage() float64 {
	return float64(len(set)) / float64(models.TotalChapters) * 100
}

// IsChapterAccessible: chapter 1 is always open, every other chapter opens
// once its predecessor is completed.
func IsChapterAccessible(set ChapterSet, chapter int) bool {
	if !ValidChapter(chapter) {
		return false
	}
	return chapter == 1 || set.Contains(chapter-1)
}
