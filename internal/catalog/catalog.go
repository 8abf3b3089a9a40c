// Package catalog はバイナリに同梱された17件のSDGカタログを提供する。
package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

const (
	// MinSDGID はSDG IDの最小値。
	MinSDGID = 1
	// MaxSDGID はSDG IDの最大値。
	MaxSDGID = 17
)

// SDG はSustainable Development Goalの静的データ。
type SDG struct {
	ID           int      `json:"id"`
	DisplayTitle string   `json:"display_title"`
	Title        string   `json:"title"`
	Summary      string   `json:"summary"`
	Description  string   `json:"description"`
	Color        string   `json:"color"`
	ImageURL     string   `json:"image_url"`
	FocusAreas   []string `json:"focus_areas"`
	Objectives   []string `json:"objectives"`
	Requirements []string `json:"requirements"`
	Benefits     []string `json:"benefits"`
	Targets      []string `json:"targets"`
}

//go:embed sdgs.json
var sdgsJSON []byte

// sdgs はID昇順に並んだSDG一覧。init時に1回だけ構築する。
var sdgs []SDG

func init() {
	list, err := load(sdgsJSON)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid embedded SDG data: %v", err))
	}
	sdgs = list
}

// load はJSONをパースし、IDが1〜17で欠番・重複がないことを検証する。
func load(data []byte) ([]SDG, error) {
	var list []SDG
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse SDG data: %w", err)
	}
	if len(list) != MaxSDGID {
		return nil, fmt.Errorf("expected %d SDGs, got %d", MaxSDGID, len(list))
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	for i, s := range list {
		if s.ID != i+MinSDGID {
			return nil, fmt.Errorf("SDG ids must be contiguous from %d: position %d has id %d", MinSDGID, i, s.ID)
		}
		if s.Title == "" {
			return nil, fmt.Errorf("SDG %d has an empty title", s.ID)
		}
	}
	return list, nil
}

// List は全SDGをID昇順で返す。呼び出し側での変更はカタログに影響しない。
func List() []SDG {
	out := make([]SDG, len(sdgs))
	for i, s := range sdgs {
		out[i] = s.clone()
	}
	return out
}

// Get は指定IDのSDGのコピーを返す。1〜17以外のIDの場合はfalseを返す。
func Get(id int) (SDG, bool) {
	if id < MinSDGID || id > MaxSDGID {
		return SDG{}, false
	}
	return sdgs[id-MinSDGID].clone(), true
}

// clone はスライスを含めて複製する。
func (s SDG) clone() SDG {
	s.FocusAreas = cloneStrings(s.FocusAreas)
	s.Objectives = cloneStrings(s.Objectives)
	s.Requirements = cloneStrings(s.Requirements)
	s.Benefits = cloneStrings(s.Benefits)
	s.Targets = cloneStrings(s.Targets)
	return s
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// ParseID はパスパラメータ等の文字列をSDG IDに変換する。
// 数値でない場合や範囲外の場合はエラーを返す。
func ParseID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("SDG id is not a number: %q", raw)
	}
	if id < MinSDGID || id > MaxSDGID {
		return 0, fmt.Errorf("SDG id must be between %d and %d: %d", MinSDGID, MaxSDGID, id)
	}
	return id, nil
}
