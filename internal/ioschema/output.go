package ioschema

import (
	"encoding/json"

	"github.com/Fraunhofer-AISEC/archie/internal/worklog"
)

// Result is the mapping returned to the host orchestrator, per spec.md
// §6.2.
type Result struct {
	MemInfo      []worklog.MemInfo          `json:"meminfo" yaml:"meminfo"`
	TbInfo       []worklog.TbInfoBlock      `json:"tbinfo" yaml:"tbinfo"`
	TbExec       []worklog.TbExecEntry      `json:"tbexec" yaml:"tbexec"`
	Endpoint     int                        `json:"endpoint" yaml:"endpoint"`
	EndReason    string                     `json:"end_reason" yaml:"end_reason"`
	RegisterList []worklog.RegisterSnapshot `json:"registerlist" yaml:"registerlist"`
	MemDumps     []worklog.MemDump          `json:"memdumps" yaml:"memdumps"`
}

// Encode marshals r as JSON, the result's canonical wire format.
func (r *Result) Encode() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
