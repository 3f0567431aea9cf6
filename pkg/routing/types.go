package routing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the gateway routing config stored in config.yaml.
type Config struct {
	ModelList []ModelEntry `yaml:"model_list" json:"model_list"`

	// Opaque gateway sections, kept as parsed. A zero Node means the key
	// was absent; an explicit null is kept.
	LiteLLMSettings yaml.Node `yaml:"litellm_settings,omitempty" json:"-"`
	RouterSettings  yaml.Node `yaml:"router_settings,omitempty" json:"-"`
	GeneralSettings yaml.Node `yaml:"general_settings,omitempty" json:"-"`

	Extra Extra `yaml:",inline" json:"-"`
}

// Extra holds keys a document type does not model, kept verbatim.
type Extra map[string]yaml.Node

// ModelEntry is one routable model.
type ModelEntry struct {
	ModelName string        `yaml:"model_name" json:"model_name"`
	Params    LiteLLMParams `yaml:"litellm_params" json:"litellm_params"`

	Extra Extra `yaml:",inline" json:"-"`
}

// LiteLLMParams are the upstream parameters for a model entry.
type LiteLLMParams struct {
	Model   string `yaml:"model" json:"model"`
	APIBase string `yaml:"api_base" json:"api_base"`

	Extra Extra `yaml:",inline" json:"-"`
}

// Policy is the routing policy stored in routing/policy.yaml. Each
// sub-policy is its zero value when absent from the document.
type Policy struct {
	Version    string           `yaml:"version" json:"version"`
	Privacy    PrivacyPolicy    `yaml:"privacy" json:"privacy"`
	Complexity ComplexityPolicy `yaml:"complexity" json:"complexity"`
	Injection  InjectionPolicy  `yaml:"injection" json:"injection"`
	Routing    yaml.Node        `yaml:"routing,omitempty" json:"-"`

	Extra Extra `yaml:",inline" json:"-"`
}

// PrivacyPolicy routes requests that look sensitive to a local model.
type PrivacyPolicy struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	PIIRegexes       []string `yaml:"pii_regexes" json:"pii_regexes"`
	EntropyThreshold float64  `yaml:"entropy_threshold" json:"entropy_threshold"`
	MinTokenLength   uint32   `yaml:"min_token_length" json:"min_token_length"`
	SensitiveModel   string   `yaml:"sensitive_model" json:"sensitive_model"`

	Extra Extra `yaml:",inline" json:"-"`
}

// ComplexityPolicy picks a model tier from prompt size and content signals.
type ComplexityPolicy struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	SimpleMaxTokens  uint32   `yaml:"simple_max_tokens" json:"simple_max_tokens"`
	MediumMaxTokens  uint32   `yaml:"medium_max_tokens" json:"medium_max_tokens"`
	CodeSignals      []string `yaml:"code_signals" json:"code_signals"`
	ReasoningSignals []string `yaml:"reasoning_signals" json:"reasoning_signals"`

	Extra Extra `yaml:",inline" json:"-"`
}

// InjectionPolicy flags prompt-injection attempts.
type InjectionPolicy struct {
	Enabled          bool     `yaml:"enabled" json:"enabled"`
	Patterns         []string `yaml:"patterns" json:"patterns"`
	BlockOnInjection bool     `yaml:"block_on_injection" json:"block_on_injection"`

	Extra Extra `yaml:",inline" json:"-"`
}

// ModelNames returns the configured model names in order.
func (c Config) ModelNames() []string {
	names := make([]string, 0, len(c.ModelList))
	for _, m := range c.ModelList {
		names = append(names, m.ModelName)
	}
	return names
}

// NewSection encodes v as an opaque section or Extra value.
func NewSection(v any) (yaml.Node, error) {
	var n yaml.Node
	err := n.Encode(v)
	return n, err
}

// SectionValue decodes an opaque section into plain Go values. An absent
// section and an explicit null both yield nil.
func SectionValue(n yaml.Node) (any, error) {
	if n.Kind == 0 {
		return nil, nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// The JSON forms flatten Extra and the opaque sections into the enclosing
// object so API clients see the same shape as the YAML document.

func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return marshalObject(plain(c), c.Extra.with(map[string]yaml.Node{
		"litellm_settings": c.LiteLLMSettings,
		"router_settings":  c.RouterSettings,
		"general_settings": c.GeneralSettings,
	}))
}

func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	var p plain
	if err := unmarshalObject(data, &p, &p.Extra); err != nil {
		return err
	}
	p.LiteLLMSettings = p.Extra.take("litellm_settings")
	p.RouterSettings = p.Extra.take("router_settings")
	p.GeneralSettings = p.Extra.take("general_settings")
	*c = Config(p)
	return nil
}

func (m ModelEntry) MarshalJSON() ([]byte, error) {
	type plain ModelEntry
	return marshalObject(plain(m), m.Extra)
}

func (m *ModelEntry) UnmarshalJSON(data []byte) error {
	type plain ModelEntry
	var p plain
	if err := unmarshalObject(data, &p, &p.Extra); err != nil {
		return err
	}
	*m = ModelEntry(p)
	return nil
}

func (l LiteLLMParams) MarshalJSON() ([]byte, error) {
	type plain LiteLLMParams
	return marshalObject(plain(l), l.Extra)
}

func (l *LiteLLMParams) UnmarshalJSON(data []byte) error {
	type plain LiteLLMParams
	var p plain
	if err := unmarshalObject(data, &p, &p.Extra); err != nil {
		return err
	}
	*l = LiteLLMParams(p)
	return nil
}

func (p Policy) MarshalJSON() ([]byte, error) {
	type plain Policy
	return marshalObject(plain(p), p.Extra.with(map[string]yaml.Node{"routing": p.Routing}))
}

func (p *Policy) UnmarshalJSON(data []byte) error {
	type plain Policy
	var v plain
	if err := unmarshalObject(data, &v, &v.Extra); err != nil {
		return err
	}
	v.Routing = v.Extra.take("routing")
	*p = Policy(v)
	return nil
}

func (p PrivacyPolicy) MarshalJSON() ([]byte, error) {
	type plain PrivacyPolicy
	return marshalObject(plain(p), p.Extra)
}

func (p *PrivacyPolicy) UnmarshalJSON(data []byte) error {
	type plain PrivacyPolicy
	var v plain
	if err := unmarshalObject(data, &v, &v.Extra); err != nil {
		return err
	}
	*p = PrivacyPolicy(v)
	return nil
}

func (c ComplexityPolicy) MarshalJSON() ([]byte, error) {
	type plain ComplexityPolicy
	return marshalObject(plain(c), c.Extra)
}

func (c *ComplexityPolicy) UnmarshalJSON(data []byte) error {
	type plain ComplexityPolicy
	var v plain
	if err := unmarshalObject(data, &v, &v.Extra); err != nil {
		return err
	}
	*c = ComplexityPolicy(v)
	return nil
}

func (i InjectionPolicy) MarshalJSON() ([]byte, error) {
	type plain InjectionPolicy
	return marshalObject(plain(i), i.Extra)
}

func (i *InjectionPolicy) UnmarshalJSON(data []byte) error {
	type plain InjectionPolicy
	var v plain
	if err := unmarshalObject(data, &v, &v.Extra); err != nil {
		return err
	}
	*i = InjectionPolicy(v)
	return nil
}

// with returns a copy of e plus every section that is present.
func (e Extra) with(sections map[string]yaml.Node) Extra {
	out := make(Extra, len(e)+len(sections))
	for k, n := range e {
		out[k] = n
	}
	for k, n := range sections {
		if n.Kind != 0 {
			out[k] = n
		}
	}
	return out
}

// take removes key from e and returns its node, or a zero Node.
func (e *Extra) take(key string) yaml.Node {
	n, ok := (*e)[key]
	if !ok {
		return yaml.Node{}
	}
	delete(*e, key)
	if len(*e) == 0 {
		*e = nil
	}
	return n
}

// forgetPositions clears source positions so documents loaded from
// different files compare equal by content.
func (e Extra) forgetPositions() {
	for k, n := range e {
		forgetPositions(&n)
		e[k] = n
	}
}

func forgetPositions(n *yaml.Node) {
	n.Line, n.Column = 0, 0
	for _, c := range n.Content {
		forgetPositions(c)
	}
}

func (c *Config) forgetPositions() {
	forgetPositions(&c.LiteLLMSettings)
	forgetPositions(&c.RouterSettings)
	forgetPositions(&c.GeneralSettings)
	c.Extra.forgetPositions()
	for i := range c.ModelList {
		c.ModelList[i].Extra.forgetPositions()
		c.ModelList[i].Params.Extra.forgetPositions()
	}
}

func (p *Policy) forgetPositions() {
	forgetPositions(&p.Routing)
	p.Extra.forgetPositions()
	p.Privacy.Extra.forgetPositions()
	p.Complexity.Extra.forgetPositions()
	p.Injection.Extra.forgetPositions()
}

// marshalObject encodes known and then adds every extra key it does not
// already define.
func marshalObject(known any, extra Extra) ([]byte, error) {
	b, err := json.Marshal(known)
	if err != nil || len(extra) == 0 {
		return b, err
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, err
	}
	for k, n := range extra {
		if _, ok := obj[k]; ok {
			continue
		}
		v, err := nodeValue(&n)
		if err != nil {
			return nil, fmt.Errorf("routing: %s: %w", k, err)
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("routing: %s: %w", k, err)
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}

// unmarshalObject decodes data into known (a pointer to a struct) and
// collects keys that match none of its json tags into extra.
func unmarshalObject(data []byte, known any, extra *Extra) error {
	if err := json.Unmarshal(data, known); err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return err
	}
	tags := jsonKeys(reflect.TypeOf(known).Elem())
	for k, v := range obj {
		if _, ok := tags[k]; ok {
			continue
		}
		if *extra == nil {
			*extra = make(Extra)
		}
		(*extra)[k] = *valueNode(v)
	}
	return nil
}

func jsonKeys(t reflect.Type) map[string]struct{} {
	keys := make(map[string]struct{}, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		name, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		keys[name] = struct{}{}
	}
	return keys
}

// nodeValue converts n for json.Marshal. Numbers whose YAML text is also
// valid JSON are passed through as written, so 1.0 stays 1.0.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case 0:
		return nil, nil
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			v, err := nodeValue(n.Content[i+1])
			if err != nil {
				return nil, err
			}
			out[n.Content[i].Value] = v
		}
		return out, nil
	}

	switch n.ShortTag() {
	case "!!int", "!!float":
		if json.Valid([]byte(n.Value)) {
			return json.RawMessage(n.Value), nil
		}
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// valueNode converts a value decoded by encoding/json with UseNumber.
func valueNode(v any) *yaml.Node {
	scalar := func(tag, value string) *yaml.Node {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
	}
	switch v := v.(type) {
	case nil:
		return scalar("!!null", "null")
	case bool:
		return scalar("!!bool", strconv.FormatBool(v))
	case json.Number:
		if strings.ContainsAny(v.String(), ".eE") {
			return scalar("!!float", v.String())
		}
		return scalar("!!int", v.String())
	case string:
		return scalar("!!str", v)
	case []any:
		n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, e := range v {
			n.Content = append(n.Content, valueNode(e))
		}
		return n
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range keys {
			n.Content = append(n.Content, scalar("!!str", k), valueNode(v[k]))
		}
		return n
	default:
		return scalar("!!str", fmt.Sprint(v))
	}
}
