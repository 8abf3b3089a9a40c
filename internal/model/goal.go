package model

import (
	"fmt"
	"strings"
	"time"
)

// GoalType は応募先の種別を表す。
type GoalType string

const (
	// GoalTypeSIG はSpecial Interest Group。
	GoalTypeSIG GoalType = "sig"
	// GoalTypeSDG はSustainable Development Goal。
	GoalTypeSDG GoalType = "sdg"
)

// ParseGoalType は文字列をGoalTypeに変換する。
func ParseGoalType(s string) (GoalType, error) {
	switch GoalType(strings.ToLower(strings.TrimSpace(s))) {
	case GoalTypeSIG:
		return GoalTypeSIG, nil
	case GoalTypeSDG:
		return GoalTypeSDG, nil
	default:
		return "", fmt.Errorf("unknown goal type: %q", s)
	}
}

// GoalRef は応募先（SIGまたはSDG）への参照。
// SDGのIDは"1"〜"17"、SIGのIDはUUID文字列。
type GoalRef struct {
	Type GoalType
	ID   string
}

// String はログ出力用の表現を返す。
func (g GoalRef) String() string {
	return string(g.Type) + ":" + g.ID
}

// SIG はSpecial Interest Groupを表す。sigsテーブルで管理される。
type SIG struct {
	ID           string
	Name         string
	Acronym      string
	Description  string
	FocusAreas   []string
	Objectives   []string
	Requirements []string
	Benefits     []string
	ImageURL     string
	Color        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
