package extract

import (
	"encoding/json"
	"log/slog"
	"strings"

	apperrors "opodata/internal/errors"
	"opodata/internal/identity"
	"opodata/internal/workbook"
	"opodata/pkg/contracts/domain"
)

// DirectoryExtractor builds the base record set from the national OPO
// directory site. The site is statically generated; its page-data document
// carries the full query result as JSON. This source is the source of truth
// for the DSA-code universe: every other record set only attaches to codes
// it defines.
type DirectoryExtractor struct {
	logger *slog.Logger
}

// NewDirectoryExtractor creates the base directory extractor.
func NewDirectoryExtractor(logger *slog.Logger) *DirectoryExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryExtractor{logger: logger.With(slog.String("component", "directory_extractor"))}
}

// directoryDocument mirrors the page-data envelope of the directory site.
type directoryDocument struct {
	Result struct {
		Data struct {
			AllOpos struct {
				Nodes []directoryNode `json:"nodes"`
			} `json:"allOpos"`
		} `json:"data"`
	} `json:"result"`
}

type directoryNode struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	City        string `json:"city"`
	State       string `json:"state"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Region      string `json:"region"`
	ServiceArea string `json:"serviceArea"`
	Tier        string `json:"tier"`

	TransplantCenters []struct {
		Name     string   `json:"name"`
		Code     string   `json:"code"`
		City     string   `json:"city"`
		Services []string `json:"services"`
	} `json:"transplantCenters"`
}

// Extract parses the page-data document into base records. A document that
// does not decode is fatal: without the base there is no universe to merge
// onto.
func (e *DirectoryExtractor) Extract(data []byte) ([]domain.OPO, error) {
	var doc directoryDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperrors.NewParsingError("directory page-data did not decode", err)
	}

	nodes := doc.Result.Data.AllOpos.Nodes
	opos := make([]domain.OPO, 0, len(nodes))
	for _, node := range nodes {
		code := strings.TrimSpace(node.Code)
		if !domain.IsValidDSACode(code) {
			e.logger.Warn("skipping directory node without a valid DSA code",
				slog.String("code", node.Code),
				slog.String("name", node.Name))
			continue
		}

		opo := domain.OPO{
			OPOID:   identity.DeriveOPOID(code),
			DSACode: code,
			Name:    workbook.CoerceString(node.Name),
		}

		states, regions := parseServiceArea(node.ServiceArea)
		opo.StatesServed = states
		opo.Regions = regions

		region := workbook.CoerceString(node.Region)
		if region == nil && len(regions) > 0 {
			region = &regions[0]
		}
		opo.Location = &domain.Location{
			State:   workbook.CoerceString(node.State),
			City:    workbook.CoerceString(node.City),
			Address: workbook.CoerceString(node.Address),
			Phone:   workbook.CoerceString(node.Phone),
			Region:  region,
		}

		opo.CMSStatus = tierStatus(workbook.LeadingDigit(node.Tier), nil)

		if centers := collectCenters(node); len(centers) > 0 {
			opo.Relationships = &domain.Relationships{TransplantCenters: centers}
		}

		opos = append(opos, opo)
	}

	e.logger.Info("extracted base directory",
		slog.Int("nodes", len(nodes)),
		slog.Int("records", len(opos)))

	return opos, nil
}

// parseServiceArea splits the semicolon-delimited "state - region" compound
// field into a deduplicated state list and an ordered region list, one
// region entry per segment.
func parseServiceArea(raw string) (states, regions []string) {
	seen := make(map[string]struct{})
	for _, segment := range strings.Split(raw, ";") {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}

		state, region := segment, ""
		if idx := strings.Index(segment, " - "); idx >= 0 {
			state = strings.TrimSpace(segment[:idx])
			region = strings.TrimSpace(segment[idx+3:])
		}

		if state != "" {
			if _, dup := seen[state]; !dup {
				seen[state] = struct{}{}
				states = append(states, state)
			}
		}
		regions = append(regions, region)
	}
	return states, regions
}

// tierStatus derives the CMS classification from a known tier. AtRisk is
// tier >= 2, null when the tier is unknown.
func tierStatus(tier, cycleYear *int) *domain.CMSStatus {
	if tier == nil {
		return nil
	}
	atRisk := *tier >= 2
	return &domain.CMSStatus{Tier: tier, CycleYear: cycleYear, AtRisk: &atRisk}
}

func collectCenters(node directoryNode) []domain.TransplantCenter {
	var centers []domain.TransplantCenter
	seen := make(map[string]struct{})
	for _, c := range node.TransplantCenters {
		center := domain.TransplantCenter{
			Name:     strings.TrimSpace(c.Name),
			Code:     strings.TrimSpace(c.Code),
			City:     workbook.CoerceString(c.City),
			Services: c.Services,
		}
		if center.Name == "" && center.Code == "" {
			continue
		}
		key := center.CenterKey()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		centers = append(centers, center)
	}
	return centers
}
