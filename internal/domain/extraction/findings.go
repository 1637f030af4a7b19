package extraction

import (
	"fmt"

	"github.com/Strob0t/MailWarden/internal/domain/assessment"
)

// MaxFindings caps the number of findings reported per agent.
const MaxFindings = 3

// FindingRule turns the value at Path into zero or more findings. Emit also
// receives the whole payload for rules that combine sibling fields.
type FindingRule struct {
	Path string
	Emit func(v any, raw map[string]any) []string
}

// FindingSchema is an ordered list of finding rules. Every rule is applied;
// results are concatenated in rule order and truncated to MaxFindings.
type FindingSchema []FindingRule

// Extract applies the schema to raw.
func (s FindingSchema) Extract(raw map[string]any) []string {
	findings := []string{}
	for _, r := range s {
		if len(findings) >= MaxFindings {
			break
		}
		v, ok := Lookup(raw, r.Path)
		if !ok {
			continue
		}
		findings = append(findings, r.Emit(v, raw)...)
	}
	if len(findings) > MaxFindings {
		findings = findings[:MaxFindings]
	}
	return findings
}

// SchemaFor returns the finding schema of the given agent. Unknown agents
// get an empty schema.
func SchemaFor(agent assessment.Agent) FindingSchema {
	switch agent {
	case assessment.AgentLinguistic:
		return linguisticSchema
	case assessment.AgentTechnicalValidation:
		return technicalSchema
	case assessment.AgentThreatIntelligence:
		return threatIntelSchema
	}
	return nil
}

// Findings extracts the key findings of agent from its raw output.
func Findings(agent assessment.Agent, raw map[string]any) []string {
	return SchemaFor(agent).Extract(raw)
}

var linguisticSchema = FindingSchema{
	{Path: "findings", Emit: emitLinguisticFindings},
}

var technicalSchema = FindingSchema{
	{Path: "domain_validation", Emit: func(v any, _ map[string]any) []string {
		dv, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		if isNew, ok := First(dv, Rule[bool]{Path: "is_new_domain", Transform: Bool}); !ok || !isNew {
			return nil
		}
		age, _ := Lookup(dv, "age_days")
		return []string{fmt.Sprintf("Domain registered only %s days ago (high phishing risk)", Format(age))}
	}},
	{Path: "has_external_links", Emit: func(v any, raw map[string]any) []string {
		if has, ok := Bool(v); !ok || !has {
			return nil
		}
		count := any(0)
		if c, ok := Lookup(raw, "url_count"); ok {
			count = c
		}
		return []string{fmt.Sprintf("Email contains %s external link(s)", Format(count))}
	}},
}

var threatIntelSchema = FindingSchema{
	{Path: "malicious_count", Emit: func(v any, _ map[string]any) []string {
		n, ok := Float(v)
		if !ok || n <= 0 {
			return nil
		}
		return []string{fmt.Sprintf("%s malicious URL(s) detected in threat databases", Format(v))}
	}},
	{Path: "ip_reputation", Emit: func(v any, _ map[string]any) []string {
		rep, ok := v.(map[string]any)
		if !ok {
			return nil
		}
		if bad, ok := First(rep, Rule[bool]{Path: "is_malicious", Transform: Bool}); !ok || !bad {
			return nil
		}
		score := any(0)
		if s, ok := Lookup(rep, "abuse_score"); ok {
			score = s
		}
		return []string{fmt.Sprintf("Sender IP has abuse score of %s/100", Format(score))}
	}},
}

// emitLinguisticFindings renders the leading entries of the findings list
// as "SEVERITY: description". Plain string entries pass through verbatim.
func emitLinguisticFindings(v any, _ map[string]any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range items {
		if len(out) >= MaxFindings {
			break
		}
		switch f := item.(type) {
		case string:
			out = append(out, f)
		case map[string]any:
			severity := "UNKNOWN"
			if s, ok := First(f, Rule[string]{Path: "severity", Transform: String}); ok {
				severity = s
			}
			desc, _ := First(f, Rule[string]{Path: "description", Transform: String})
			out = append(out, severity+": "+desc)
		}
	}
	return out
}
