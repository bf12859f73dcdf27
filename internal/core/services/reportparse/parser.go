package reportparse

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	apperrors "github.com/offcuttrack/offcut-service/internal/pkg/errors"
)

// Report text markers. One report holds several optimisation sections,
// each introduced by the section header; the batch code and saw name
// appear once per section at most and carry forward to later sections
// that omit them.
const (
	sectionHeader   = "BAR OPTIMISING"
	productMarker   = "Product Code:"
	doubleCutMarker = "*** Double Cut Bars ***"
)

var (
	sectionRe     = regexp.MustCompile(`\s*` + sectionHeader + `\s*`)
	batchCodeRe   = regexp.MustCompile(`BATCH:\s*(\S+)`)
	sawNameRe     = regexp.MustCompile(`Saw:\s*(.+)`)
	productCodeRe = regexp.MustCompile(`Product Code:\s*(\S+)`)
	descriptionRe = regexp.MustCompile(`Description:\s*(.+)`)
	barLengthRe   = regexp.MustCompile(`Bar Length:\s*(\d+)`)
	totalUsedRe   = regexp.MustCompile(`Total Used:\s*(\d+)`)
	useOffcutRe   = regexp.MustCompile(`Use Offcuts?:\s*([\d\s&]*)`)
	saveOffcutRe  = regexp.MustCompile(`Save Offcuts?:\s*([\d\s&]*)`)
	productPosRe  = regexp.MustCompile(productMarker)
)

// Parser extracts cutting records from the plain text of one saw
// optimisation report. The text is expected to have been extracted
// from the PDF upstream; the parser never sees PDF bytes.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new report parser
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// parseContext is the carry-forward state threaded across sections. A
// section that omits the batch code or saw name inherits the most
// recently seen value.
type parseContext struct {
	batchCode string
	sawName   string
	seenBatch bool
}

// Parse extracts the ordered record sequence from report text. A report
// with no recognisable batch code anywhere fails with PARSE_ERROR; a
// report with zero product sub-blocks yields an empty sequence.
func (p *Parser) Parse(ctx context.Context, text string) (*ParseResult, error) {
	sections := sectionRe.Split(text, -1)

	result := &ParseResult{Records: []RawRecord{}}
	pctx := parseContext{}

	for _, section := range sections {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		p.updateContext(&pctx, section)

		for _, block := range productBlocks(section) {
			result.Products++
			result.Records = append(result.Records, p.parseProduct(&pctx, block))
		}
	}
	result.Sections = len(sections)

	if !pctx.seenBatch {
		return nil, apperrors.ParseError("no batch code found in report text")
	}

	p.logger.Debug("report parsed",
		slog.Int("sections", result.Sections),
		slog.Int("records", len(result.Records)))

	return result, nil
}

// updateContext refreshes the carry-forward batch code and saw name
// from the current section
func (p *Parser) updateContext(pctx *parseContext, section string) {
	if m := batchCodeRe.FindStringSubmatch(section); m != nil {
		pctx.batchCode = strings.TrimSpace(m[1])
		pctx.seenBatch = true
	}
	if m := sawNameRe.FindStringSubmatch(section); m != nil {
		pctx.sawName = strings.TrimSpace(m[1])
	}
}

// productBlocks splits a section into per-product sub-blocks, each
// starting at a product marker and running to the next marker or the
// end of the section
func productBlocks(section string) []string {
	positions := productPosRe.FindAllStringIndex(section, -1)
	if len(positions) == 0 {
		return nil
	}

	blocks := make([]string, 0, len(positions))
	for i, pos := range positions {
		end := len(section)
		if i+1 < len(positions) {
			end = positions[i+1][0]
		}
		blocks = append(blocks, section[pos[0]:end])
	}
	return blocks
}

// parseProduct extracts one raw record from a product sub-block. Used
// length defaults to zero when absent; other missing fields stay at
// their zero value and surface as validation failures downstream.
func (p *Parser) parseProduct(pctx *parseContext, block string) RawRecord {
	rec := RawRecord{
		BatchCode:          pctx.batchCode,
		SawName:            pctx.sawName,
		SuggestedOffcutIDs: NoneSentinel,
		CreatedOffcutIDs:   NoneSentinel,
		DoubleCut:          strings.Contains(block, doubleCutMarker),
	}

	if m := productCodeRe.FindStringSubmatch(block); m != nil {
		rec.ItemCode = strings.TrimSpace(m[1])
	}
	if m := descriptionRe.FindStringSubmatch(block); m != nil {
		rec.ItemDescription = strings.TrimSpace(m[1])
	}
	if m := barLengthRe.FindStringSubmatch(block); m != nil {
		rec.InputBarLength, _ = strconv.Atoi(strings.TrimSpace(m[1]))
	}
	if m := totalUsedRe.FindStringSubmatch(block); m != nil {
		rec.BarLengthUsed, _ = strconv.Atoi(strings.TrimSpace(m[1]))
	}
	if m := useOffcutRe.FindStringSubmatch(block); m != nil {
		if ids := strings.TrimSpace(m[1]); ids != "" {
			rec.SuggestedOffcutIDs = ids
		}
	}
	if m := saveOffcutRe.FindStringSubmatch(block); m != nil {
		if ids := strings.TrimSpace(m[1]); ids != "" {
			rec.CreatedOffcutIDs = ids
		}
	}

	return rec
}
