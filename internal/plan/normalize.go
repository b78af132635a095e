// Package plan turns the generative backend's loosely shaped suggestion
// payloads into a fixed structure the rest of the app can rely on. The
// backend's schema is not contractually stable: it has been observed to
// return a list of plans, a single plan object, free text wrapping
// serialized JSON, and Japanese-language aliases for the same fields.
// Normalization is total; every branch degrades to a well-formed result.
package plan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Placeholders used when a plan arrives without the fields every plan must
// have. These match the backend's own language.
const (
	placeholderTitle       = "タイトルなし"
	placeholderDescription = "説明がありません"
)

const defaultMessage = "AI処理が完了しました"

// Plan is one normalized suggestion. Title and Description are always
// non-empty; the rest is optional.
type Plan struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Schedule    string   `json:"schedule,omitempty"`
	Budget      string   `json:"budget,omitempty"`
	Highlights  []string `json:"highlights,omitempty"`
	Notes       []string `json:"notes,omitempty"`
}

// Analysis summarizes what the backend extracted from the conversation.
type Analysis struct {
	Topics    []string `json:"topics,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Interests []string `json:"interests,omitempty"`
	Plans     []string `json:"plans,omitempty"`
	Tone      string   `json:"tone,omitempty"`
}

// Intent describes what the backend believes the users are asking for.
type Intent struct {
	Type                string `json:"type,omitempty"`
	Budget              string `json:"budget,omitempty"`
	Timeframe           string `json:"timeframe,omitempty"`
	LocationConstraints string `json:"location_constraints,omitempty"`
	SpecialRequests     string `json:"special_requests,omitempty"`
}

// Thinking exposes the backend's intermediate reasoning hints.
type Thinking struct {
	SearchKeywords []string `json:"search_keywords,omitempty"`
	FocusAreas     []string `json:"focus_areas,omitempty"`
	Tone           string   `json:"tone,omitempty"`
	Constraints    []string `json:"constraints,omitempty"`
}

// Suggestions holds the normalized plans.
type Suggestions struct {
	Plans []Plan `json:"plans"`
}

// Response is the fixed shape every AI call resolves to, whatever the
// backend sent.
type Response struct {
	Success       bool           `json:"success"`
	Message       string         `json:"message"`
	Error         string         `json:"error,omitempty"`
	Analysis      *Analysis      `json:"analysis,omitempty"`
	Intent        *Intent        `json:"intent,omitempty"`
	Thinking      *Thinking      `json:"thinking,omitempty"`
	SearchResults map[string]any `json:"search_results,omitempty"`
	Suggestions   *Suggestions   `json:"suggestions,omitempty"`
}

// Normalize maps a raw response body to the fixed Response shape. It never
// fails: unrecognizable input degrades to a Response with no suggestions.
func Normalize(raw []byte) Response {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		// Not JSON at all; treat the body as free text.
		value = string(raw)
	}
	return normalizeValue(value, 0)
}

// maxReparse bounds how many times a free-text payload is re-parsed as
// JSON, so a string wrapping a string cannot loop.
const maxReparse = 1

func normalizeValue(value any, depth int) Response {
	switch v := value.(type) {
	case map[string]any:
		if isEnvelope(v) {
			return normalizeEnvelope(v, depth)
		}
		// A bare plan object.
		return planResponse([]Plan{normalizePlan(v, depth)})
	case []any:
		plans := make([]Plan, 0, len(v))
		for _, item := range v {
			plans = append(plans, normalizePlan(item, depth))
		}
		return planResponse(plans)
	case string:
		if depth < maxReparse && looksLikeJSON(v) {
			var reparsed any
			if err := json.Unmarshal([]byte(v), &reparsed); err == nil {
				return normalizeValue(reparsed, depth+1)
			}
		}
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return Response{Message: defaultMessage}
		}
		return planResponse([]Plan{{Title: placeholderTitle, Description: trimmed}})
	case nil:
		return Response{Message: defaultMessage}
	default:
		return planResponse([]Plan{normalizePlan(v, depth)})
	}
}

func planResponse(plans []Plan) Response {
	return Response{
		Success:     true,
		Message:     defaultMessage,
		Suggestions: &Suggestions{Plans: plans},
	}
}

// isEnvelope distinguishes the backend's full response object from a bare
// plan object by its top-level keys.
func isEnvelope(m map[string]any) bool {
	for _, key := range []string{"success", "message", "suggestions", "analysis", "intent", "thinking", "search_results", "error"} {
		if _, ok := m[key]; ok {
			return true
		}
	}
	return false
}

func normalizeEnvelope(m map[string]any, depth int) Response {
	resp := Response{
		Success: coerceBool(m["success"]),
		Message: stringOr(m["message"], defaultMessage),
		Error:   stringify(m["error"]),
	}

	if a, ok := m["analysis"].(map[string]any); ok {
		resp.Analysis = &Analysis{
			Topics:    coerceList(a["topics"]),
			Locations: coerceList(a["locations"]),
			Interests: coerceList(a["interests"]),
			Plans:     coerceList(a["plans"]),
			Tone:      stringify(a["tone"]),
		}
	}
	if in, ok := m["intent"].(map[string]any); ok {
		resp.Intent = &Intent{
			Type:                stringify(in["type"]),
			Budget:              stringify(in["budget"]),
			Timeframe:           stringify(in["timeframe"]),
			LocationConstraints: stringify(in["location_constraints"]),
			SpecialRequests:     stringify(in["special_requests"]),
		}
	}
	if th, ok := m["thinking"].(map[string]any); ok {
		resp.Thinking = &Thinking{
			SearchKeywords: coerceList(th["search_keywords"]),
			FocusAreas:     coerceList(th["focus_areas"]),
			Tone:           stringify(th["tone"]),
			Constraints:    coerceList(th["constraints"]),
		}
	}
	if sr, ok := m["search_results"].(map[string]any); ok {
		resp.SearchResults = sr
	}

	if suggestions, ok := m["suggestions"]; ok {
		resp.Suggestions = normalizeSuggestions(suggestions, depth)
	}
	return resp
}

func normalizeSuggestions(v any, depth int) *Suggestions {
	switch s := v.(type) {
	case map[string]any:
		return &Suggestions{Plans: coercePlans(s["plans"], depth)}
	case []any:
		return &Suggestions{Plans: coercePlans(s, depth)}
	case string:
		if depth < maxReparse && looksLikeJSON(s) {
			var reparsed any
			if err := json.Unmarshal([]byte(s), &reparsed); err == nil {
				return normalizeSuggestions(reparsed, depth+1)
			}
		}
		if strings.TrimSpace(s) == "" {
			return &Suggestions{Plans: []Plan{}}
		}
		return &Suggestions{Plans: []Plan{{Title: placeholderTitle, Description: strings.TrimSpace(s)}}}
	default:
		return &Suggestions{Plans: []Plan{}}
	}
}

func coercePlans(v any, depth int) []Plan {
	switch p := v.(type) {
	case []any:
		plans := make([]Plan, 0, len(p))
		for _, item := range p {
			plans = append(plans, normalizePlan(item, depth))
		}
		return plans
	case nil:
		return []Plan{}
	default:
		return []Plan{normalizePlan(p, depth)}
	}
}

// Alias keys the backend has been seen using for each plan field, in
// priority order.
var (
	titleKeys       = []string{"title", "プラン名", "plan_name", "name"}
	descriptionKeys = []string{"description", "説明", "詳細", "details", "内容"}
	scheduleKeys    = []string{"schedule", "スケジュール", "日程", "duration", "itinerary"}
	budgetKeys      = []string{"budget", "予算", "費用", "料金"}
	highlightKeys   = []string{"highlights", "おすすめポイント", "ポイント"}
	noteKeys        = []string{"notes", "注意事項", "準備すべきこと", "備考"}
)

func normalizePlan(v any, depth int) Plan {
	switch p := v.(type) {
	case map[string]any:
		plan := Plan{
			Title:       firstScalar(p, titleKeys, placeholderTitle),
			Description: firstScalar(p, descriptionKeys, placeholderDescription),
			Budget:      stringify(firstValue(p, budgetKeys)),
			Highlights:  coerceList(firstValue(p, highlightKeys)),
			Notes:       coerceList(firstValue(p, noteKeys)),
		}
		schedule, extras := normalizeSchedule(firstValue(p, scheduleKeys))
		plan.Schedule = schedule
		plan.Highlights = append(plan.Highlights, extras...)
		return plan
	case string:
		if depth < maxReparse && looksLikeJSON(p) {
			var reparsed any
			if err := json.Unmarshal([]byte(p), &reparsed); err == nil {
				return normalizePlan(reparsed, depth+1)
			}
		}
		desc := strings.TrimSpace(p)
		if desc == "" {
			desc = placeholderDescription
		}
		return Plan{Title: placeholderTitle, Description: desc}
	case []any:
		// A plan that is itself a list: treat it as a schedule.
		schedule, extras := normalizeSchedule(p)
		plan := Plan{Title: placeholderTitle, Description: placeholderDescription, Schedule: schedule}
		plan.Highlights = extras
		return plan
	default:
		desc := stringify(v)
		if desc == "" {
			desc = placeholderDescription
		}
		return Plan{Title: placeholderTitle, Description: desc}
	}
}

// normalizeSchedule renders a schedule value as a multi-line string. Arrays
// of {time, activity, remarks} or {place, address, url} tuples are
// flattened into readable lines; url entries additionally become
// highlights.
func normalizeSchedule(v any) (string, []string) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(s), nil
	case []any:
		var lines, highlights []string
		for _, item := range s {
			entry, ok := item.(map[string]any)
			if !ok {
				if line := stringify(item); line != "" {
					lines = append(lines, line)
				}
				continue
			}
			switch {
			case hasKey(entry, "time") || hasKey(entry, "activity"):
				line := strings.TrimSpace(stringify(entry["time"]) + " " + stringify(entry["activity"]))
				if remarks := stringify(entry["remarks"]); remarks != "" {
					line += fmt.Sprintf(" (%s)", remarks)
				}
				lines = append(lines, line)
			case hasKey(entry, "place"):
				line := stringify(entry["place"])
				if addr := stringify(entry["address"]); addr != "" {
					line += ", " + addr
				}
				lines = append(lines, line)
				if url := stringify(entry["url"]); url != "" {
					highlights = append(highlights, stringify(entry["place"])+": "+url)
				}
			default:
				lines = append(lines, stringify(entry))
			}
		}
		return strings.Join(lines, "\n"), highlights
	default:
		return stringify(v), nil
	}
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

func firstValue(m map[string]any, keys []string) any {
	for _, key := range keys {
		if v, ok := m[key]; ok && v != nil {
			return v
		}
	}
	return nil
}

func firstScalar(m map[string]any, keys []string, fallback string) string {
	if s := stringify(firstValue(m, keys)); s != "" {
		return s
	}
	return fallback
}

// coerceList accepts a list, a single scalar (wrapped), an object
// (JSON-stringified and wrapped), or absence (no entries).
func coerceList(v any) []string {
	switch l := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(l))
		for _, item := range l {
			if s := stringify(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		if s := stringify(v); s != "" {
			return []string{s}
		}
		return nil
	}
}

func coerceBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	default:
		return false
	}
}

func stringOr(v any, fallback string) string {
	if s := stringify(v); s != "" {
		return s
	}
	return fallback
}

// stringify renders any JSON value as a plain string. Objects and arrays
// are re-serialized rather than dropped so no information disappears.
func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case json.Number:
		return s.String()
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}

func looksLikeJSON(s string) bool {
	trimmed := strings.TrimSpace(s)
	return strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[")
}
