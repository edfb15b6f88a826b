package wrangle

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

type jsonConstant struct {
	Name  string       `json:"name"`
	Kind  string       `json:"kind"`
	Value hexutil.Uint `json:"value"`
}

type jsonConstantsFile struct {
	GeneratedFrom []string       `json:"generatedFrom"`
	Constants     []jsonConstant `json:"constants"`
}

type jsonStep struct {
	Field string       `json:"field"`
	Mask  hexutil.Uint `json:"mask"`
	Shift int          `json:"shift"`
}

type jsonOperand struct {
	Name       string     `json:"name"`
	Type       ArgType    `json:"type"`
	Position   int        `json:"position"`
	Width      uint8      `json:"width"`
	SignExtend bool       `json:"signExtend,omitempty"`
	Steps      []jsonStep `json:"steps"`
}

type jsonSlot struct {
	Name string `json:"name,omitempty"`
	Hi   uint8  `json:"hi"`
	Lo   uint8  `json:"lo"`
	Role string `json:"role"`
}

type jsonFormat struct {
	Name     string     `json:"name"`
	Width    Width      `json:"width"`
	Declared bool       `json:"declared"`
	Slots    []jsonSlot `json:"slots"`
	Members  []string   `json:"members"`
}

type jsonInstruction struct {
	Name       string        `json:"name"`
	Op         string        `json:"op"`
	Category   string        `json:"category"`
	Format     string        `json:"format"`
	Major      string        `json:"major,omitempty"`
	Width      Width         `json:"width"`
	XLEN       string        `json:"xlen"`
	Mask       hexutil.Uint  `json:"mask"`
	Match      hexutil.Uint  `json:"match"`
	MaskConst  string        `json:"maskConst"`
	MatchConst string        `json:"matchConst"`
	AliasOf    string        `json:"aliasOf,omitempty"`
	Shadows    []string      `json:"shadows,omitempty"`
	Operands   []jsonOperand `json:"operands"`
	Notes      string        `json:"notes,omitempty"`
	Source     string        `json:"source"`
}

type jsonInstructionsFile struct {
	GeneratedFrom []string          `json:"generatedFrom"`
	Formats       []jsonFormat      `json:"formats"`
	Instructions  []jsonInstruction `json:"instructions"`
}

func marshalJSON(v interface{}) ([]byte, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func renderJSONConstants(t *Tables) ([]byte, error) {
	f := jsonConstantsFile{
		GeneratedFrom: t.Provenance.Lines(),
		Constants:     make([]jsonConstant, 0, t.Constants.Len()),
	}
	for _, c := range t.Constants.Entries {
		f.Constants = append(f.Constants, jsonConstant{
			Name:  c.Name,
			Kind:  c.Kind.String(),
			Value: hexutil.Uint(c.Value),
		})
	}
	return marshalJSON(f)
}

func renderJSONInstructions(t *Tables) ([]byte, error) {
	f := jsonInstructionsFile{
		GeneratedFrom: t.Provenance.Lines(),
		Formats:       make([]jsonFormat, 0, len(t.Formats)),
		Instructions:  make([]jsonInstruction, 0, len(t.Instructions.Entries)),
	}
	for _, fd := range t.Formats {
		jf := jsonFormat{
			Name:     fd.Name,
			Width:    fd.Width,
			Declared: fd.Declared,
			Members:  fd.Members,
		}
		if jf.Members == nil {
			jf.Members = []string{}
		}
		for _, s := range fd.Slots {
			jf.Slots = append(jf.Slots, jsonSlot{Name: s.Name, Hi: s.Hi, Lo: s.Lo, Role: s.Role.String()})
		}
		f.Formats = append(f.Formats, jf)
	}
	for _, e := range t.Instructions.Entries {
		ji := jsonInstruction{
			Name:       e.Mnemonic,
			Op:         e.Op,
			Category:   categoryConst(e.Standard),
			Format:     formConst(e.Format),
			Width:      e.Width,
			XLEN:       e.XLENs.String(),
			Mask:       hexutil.Uint(e.Mask),
			Match:      hexutil.Uint(e.Match),
			MaskConst:  e.MaskConst,
			MatchConst: e.MatchConst,
			Shadows:    e.Shadows,
			Operands:   make([]jsonOperand, 0, len(e.Operands)),
			Notes:      e.Notes,
			Source:     e.Source.String(),
		}
		if e.Major != "" {
			ji.Major = majorConst(e.Major)
		}
		if e.Alias {
			ji.AliasOf = e.AliasOf
		}
		for _, op := range e.Operands {
			jo := jsonOperand{
				Name:       op.Name,
				Type:       op.Type,
				Position:   op.Position,
				Width:      op.Width,
				SignExtend: op.SignExtend,
				Steps:      make([]jsonStep, 0, len(op.Steps)),
			}
			for _, step := range op.Steps {
				jo.Steps = append(jo.Steps, jsonStep{Field: step.Field, Mask: hexutil.Uint(step.Mask), Shift: step.RightShift})
			}
			ji.Operands = append(ji.Operands, jo)
		}
		f.Instructions = append(f.Instructions, ji)
	}
	return marshalJSON(f)
}
