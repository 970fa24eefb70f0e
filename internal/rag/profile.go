package rag

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Profile holds the optional user details used to tailor advice.
// Empty fields render as the template placeholders.
type Profile struct {
	Injuries   string   `json:"injuries,omitempty"`
	Conditions string   `json:"conditions,omitempty"`
	Equipment  []string `json:"equipment,omitempty"`
	Time       string   `json:"time,omitempty"`
	Goal       string   `json:"goal,omitempty"`
}

// UnmarshalJSON accepts the loose shapes mobile clients send: numbers
// ("time": 30), lists ("injuries": ["knee", "wrist"]) and a single string
// for equipment. Unknown keys are ignored.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("profile must be an object: %w", err)
	}

	fields := []struct {
		key string
		dst *string
	}{
		{"injuries", &p.Injuries},
		{"conditions", &p.Conditions},
		{"time", &p.Time},
		{"goal", &p.Goal},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		s, err := looseString(v)
		if err != nil {
			return fmt.Errorf("profile.%s: %w", f.key, err)
		}
		*f.dst = s
	}

	if v, ok := raw["equipment"]; ok {
		items, err := looseList(v)
		if err != nil {
			return fmt.Errorf("profile.equipment: %w", err)
		}
		p.Equipment = items
	}
	return nil
}

func looseString(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case float64, bool:
		return fmt.Sprint(val), nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		return strings.Join(parts, ", "), nil
	default:
		return "", fmt.Errorf("unsupported value %s", string(raw))
	}
}

func looseList(raw json.RawMessage) ([]string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		if val == "" {
			return nil, nil
		}
		return []string{val}, nil
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			if item == nil {
				continue
			}
			items = append(items, fmt.Sprint(item))
		}
		return items, nil
	default:
		return nil, fmt.Errorf("unsupported value %s", string(raw))
	}
}

const coachTemplate = `You are a professional AI fitness and wellness coach.

Use the following user profile details to tailor your advice:
- Injuries: %s
- Health conditions: %s
- Equipment available: %s
- Time per day: %s
- Fitness goal: %s

Guidelines:
- Only suggest exercises using listed equipment.
- Avoid exercises that may worsen listed injuries.
- If asthma or similar conditions are present, suggest low-impact or alternative cardio.
- Make the plan achievable based on available time.
- Never repeat the profile info in your response. Just use it to inform your advice.

Now answer this question from the user:
"%s"
`

// WrapQuery embeds the query and profile into the coaching prompt.
func WrapQuery(query string, profile Profile) string {
	return fmt.Sprintf(coachTemplate,
		orDefault(profile.Injuries, "None"),
		orDefault(profile.Conditions, "None"),
		strings.Join(profile.Equipment, ", "),
		orDefault(profile.Time, "Not specified"),
		orDefault(profile.Goal, "None"),
		query,
	)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
