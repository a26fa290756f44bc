package server

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ironsheep/handwriting-tools-mcp/internal/analysis"
	"github.com/ironsheep/handwriting-tools-mcp/internal/features"
	"github.com/ironsheep/handwriting-tools-mcp/internal/glyph"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "handwriting_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// A failed analysis is not a tool error: handwriting_analyze reports it as
// {"error": ...} in the result document.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("Tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Pipeline
	case "handwriting_analyze":
		return s.handleAnalyze(ctx, args)

	// Individual stages
	case "handwriting_locate_letters":
		return s.handleLocateLetters(ctx, args)
	case "handwriting_pressure":
		return s.handlePressure(args)
	case "handwriting_spacing":
		return s.handleSpacing(ctx, args)
	case "handwriting_crop_glyph":
		return s.handleCropGlyph(ctx, args)

	// Sample information
	case "handwriting_image_info":
		return s.handleImageInfo(args)

	// History
	case "handwriting_history":
		return s.handleHistory(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage(`{}`)
	}
	return json.Unmarshal(args, v)
}

type pathArgs struct {
	Path string `json:"path"`
}

func (a pathArgs) validate() error {
	if a.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// transcribe runs OCR over the sample at path.
func (s *Server) transcribe(ctx context.Context, path string) (*ocr.Transcription, error) {
	if s.ocr == nil {
		return nil, fmt.Errorf("no OCR engine configured")
	}
	raw, err := s.cache.LoadRaw(path)
	if err != nil {
		return nil, err
	}
	return s.ocr.Recognize(ctx, raw)
}

// === Pipeline ===

type analyzeArgs struct {
	Path      string `json:"path"`
	SubjectID string `json:"subject_id"`
	Save      bool   `json:"save"`
	Detail    bool   `json:"detail"`
}

type analyzeResult struct {
	analysis.ResultDocument
	Confidence float64         `json:"confidence,omitempty"`
	RecordID   string          `json:"record_id,omitempty"`
	Trace      *analysis.Trace `json:"trace,omitempty"`
}

func (s *Server) handleAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a analyzeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, fmt.Errorf("analyzer not configured")
	}
	if a.Save && (a.SubjectID == "" || s.store == nil) {
		return nil, fmt.Errorf("save requires subject_id and a configured database")
	}

	raw, err := s.cache.LoadRaw(a.Path)
	if err != nil {
		return nil, err
	}
	if _, err := imaging.ValidateUpload(raw.Data); err != nil {
		return nil, err
	}
	if a.Save {
		if err := storage.CheckInterval(ctx, s.store, a.SubjectID, time.Now()); err != nil {
			return nil, err
		}
	}

	trace, err := s.analyzer.Inspect(ctx, raw)
	var (
		out analyzeResult
		res *scoring.Result
	)
	if err != nil {
		out.ResultDocument = analysis.Document(nil, err)
	} else {
		res = &trace.Result
		out.ResultDocument = analysis.Document(res, nil)
		out.Confidence = scoring.Confidence(res.Relapse, res.Recovery)
		if a.Detail {
			out.Trace = trace
		}
	}

	if a.Save {
		rec := storage.NewRecord(a.SubjectID, raw.Filename, res, err)
		if serr := s.store.Save(ctx, rec); serr != nil {
			return nil, serr
		}
		out.RecordID = rec.ID.String()
	}
	return out, nil
}

// === Individual stages ===

type letterBox struct {
	glyph.Box
	Width   int  `json:"width"`
	Height  int  `json:"height"`
	HasArea bool `json:"has_area"`
}

type locateResult struct {
	Letters   map[string]letterBox `json:"letters"`
	Missing   []string             `json:"missing,omitempty"`
	WordCount int                  `json:"word_count"`
	Text      string               `json:"text"`
}

func (s *Server) handleLocateLetters(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	tr, err := s.transcribe(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	boxes := glyph.Locate(tr)
	out := locateResult{
		Letters:   make(map[string]letterBox, len(boxes)),
		WordCount: tr.WordCount(),
		Text:      tr.Text(),
	}
	for _, letter := range glyph.TargetLetters {
		box, ok := boxes[letter]
		if !ok {
			out.Missing = append(out.Missing, string(letter))
			continue
		}
		out.Letters[string(letter)] = letterBox{
			Box:     box,
			Width:   box.Right - box.Left,
			Height:  box.Bottom - box.Top,
			HasArea: box.Valid(),
		}
	}
	return out, nil
}

type pressureArgs struct {
	Path          string   `json:"path"`
	LowThreshold  *float64 `json:"low_threshold"`
	HighThreshold *float64 `json:"high_threshold"`
}

type pressureResult struct {
	MeanIntensity float64 `json:"mean_intensity"`
	Pressure      string  `json:"pressure"`
	LowThreshold  float64 `json:"low_threshold"`
	HighThreshold float64 `json:"high_threshold"`
}

func (s *Server) handlePressure(args json.RawMessage) (interface{}, error) {
	var a pressureArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}

	th := s.thresholds.Pressure
	if a.LowThreshold != nil {
		th.Low = *a.LowThreshold
	}
	if a.HighThreshold != nil {
		th.High = *a.HighThreshold
	}
	if th.Low >= th.High {
		return nil, fmt.Errorf("low_threshold %v must be below high_threshold %v", th.Low, th.High)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	mean, err := imaging.MeanIntensity(img)
	if err != nil {
		return nil, err
	}
	return pressureResult{
		MeanIntensity: mean,
		Pressure:      features.PressureFromMean(mean, th),
		LowThreshold:  th.Low,
		HighThreshold: th.High,
	}, nil
}

type spacingResult struct {
	Gaps       []float64                  `json:"gaps"`
	StdDev     float64                    `json:"std_dev"`
	Spacing    string                     `json:"spacing"`
	Thresholds features.SpacingThresholds `json:"thresholds"`
}

func (s *Server) handleSpacing(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	tr, err := s.transcribe(ctx, a.Path)
	if err != nil {
		return nil, err
	}

	gaps := features.Gaps(tr)
	if gaps == nil {
		gaps = []float64{}
	}
	return spacingResult{
		Gaps:       gaps,
		StdDev:     imaging.PopulationStdDev(gaps),
		Spacing:    features.Spacing(tr, s.thresholds.Spacing),
		Thresholds: s.thresholds.Spacing,
	}, nil
}

type cropGlyphArgs struct {
	Path   string  `json:"path"`
	Letter string  `json:"letter"`
	Left   int     `json:"left"`
	Top    int     `json:"top"`
	Right  int     `json:"right"`
	Bottom int     `json:"bottom"`
	Scale  float64 `json:"scale"`
}

type cropGlyphResult struct {
	*imaging.CropResult
	Letter string    `json:"letter,omitempty"`
	Box    glyph.Box `json:"box"`
}

// handleCropGlyph crops either the box OCR finds for letter or the explicit
// box given in the arguments.
func (s *Server) handleCropGlyph(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a cropGlyphArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	box := glyph.Box{Left: a.Left, Top: a.Top, Right: a.Right, Bottom: a.Bottom}
	if a.Letter != "" {
		letter := []rune(a.Letter)
		if len(letter) != 1 || !glyph.IsTarget(letter[0]) {
			return nil, fmt.Errorf("letter must be one of %q", string(glyph.TargetLetters))
		}
		tr, err := s.transcribe(ctx, a.Path)
		if err != nil {
			return nil, err
		}
		found, ok := glyph.Locate(tr)[letter[0]]
		if !ok {
			return nil, fmt.Errorf("letter %q not found in sample", a.Letter)
		}
		box = found
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	crop, err := glyph.Crop(img, box)
	if err != nil {
		return nil, err
	}
	encoded, err := imaging.EncodeGlyph(crop, a.Scale)
	if err != nil {
		return nil, err
	}
	return cropGlyphResult{CropResult: encoded, Letter: a.Letter, Box: box}, nil
}

// === Sample information ===

type imageInfoArgs struct {
	Path      string `json:"path"`
	InkCutoff int    `json:"ink_cutoff"`
}

type imageInfoResult struct {
	*imaging.ImageInfo
	Ink *imaging.InkProfile `json:"ink"`
}

func (s *Server) handleImageInfo(args json.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if err := (pathArgs{Path: a.Path}).validate(); err != nil {
		return nil, err
	}
	if a.InkCutoff <= 0 {
		a.InkCutoff = imaging.DefaultInkCutoff
	}

	info, err := imaging.LoadImageInfo(s.cache, a.Path)
	if err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	ink, err := imaging.ProfileInk(img, a.InkCutoff)
	if err != nil {
		return nil, err
	}
	return imageInfoResult{ImageInfo: info, Ink: ink}, nil
}

// === History ===

type historyArgs struct {
	SubjectID string `json:"subject_id"`
	Limit     int    `json:"limit"`
}

type historyResult struct {
	SubjectID string           `json:"subject_id"`
	Count     int              `json:"count"`
	Records   []storage.Record `json:"records"`
}

func (s *Server) handleHistory(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a historyArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.SubjectID == "" {
		return nil, fmt.Errorf("subject_id is required")
	}
	if s.store == nil {
		return nil, fmt.Errorf("no database configured")
	}
	if a.Limit <= 0 {
		a.Limit = 20
	}

	records, err := s.store.History(ctx, a.SubjectID, a.Limit)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []storage.Record{}
	}
	return historyResult{SubjectID: a.SubjectID, Count: len(records), Records: records}, nil
}
