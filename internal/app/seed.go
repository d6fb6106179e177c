package app

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/hylla/tavla/internal/domain"
)

//go:embed seed.schema.json
var seedSchemaJSON []byte

const seedSchemaURL = "seed.schema.json"

// SeedBoard is the fixture shape of one board. Fixtures carry no IDs.
type SeedBoard struct {
	Name    string       `json:"name"`
	Columns []SeedColumn `json:"columns"`
}

// SeedColumn is the fixture shape of one column.
type SeedColumn struct {
	Name  string     `json:"name"`
	Tasks []SeedTask `json:"tasks,omitempty"`
}

// SeedTask is the fixture shape of one task.
type SeedTask struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      string        `json:"status"`
	Subtasks    []SeedSubtask `json:"subtasks,omitempty"`
}

// SeedSubtask is the fixture shape of one checklist item.
type SeedSubtask struct {
	Name        string `json:"name"`
	IsCompleted bool   `json:"isCompleted"`
}

// SeedValidationError describes the first schema violation in a seed payload.
type SeedValidationError struct {
	Path    string
	Message string
}

// Error implements error.
func (e *SeedValidationError) Error() string {
	if e.Path == "" {
		return "seed: " + e.Message
	}
	return fmt.Sprintf("seed %s: %s", e.Path, e.Message)
}

// Unwrap returns ErrInvalidSeed.
func (e *SeedValidationError) Unwrap() error {
	return ErrInvalidSeed
}

// ParseSeed validates raw against the seed schema and builds boards with fresh IDs.
func ParseSeed(raw []byte, idGen IDGenerator, now time.Time) ([]domain.Board, error) {
	if idGen == nil {
		return nil, fmt.Errorf("parse seed: id generator is required: %w", ErrInvalidSeed)
	}
	if err := validateSeed(raw); err != nil {
		return nil, err
	}

	var seed []SeedBoard
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w: %v", ErrInvalidSeed, err)
	}

	boardNames := make([]string, 0, len(seed))
	for _, board := range seed {
		boardNames = append(boardNames, board.Name)
	}
	if err := domain.ValidateUniqueNames(domain.NameKindBoard, boardNames); err != nil {
		return nil, fmt.Errorf("parse seed: %w: %w", ErrInvalidSeed, err)
	}

	boards := make([]domain.Board, 0, len(seed))
	for boardIdx, seedBoard := range seed {
		board, err := buildSeedBoard(seedBoard, idGen, now)
		if err != nil {
			return nil, fmt.Errorf("parse seed board[%d]: %w: %w", boardIdx, ErrInvalidSeed, err)
		}
		boards = append(boards, board)
	}
	return boards, nil
}

// InitializeFromSeed parses raw and replaces the board list with it.
func (s *Service) InitializeFromSeed(ctx context.Context, raw []byte, force bool) ([]domain.Board, error) {
	boards, err := ParseSeed(raw, s.idGen, s.clock())
	if err != nil {
		return nil, err
	}
	if err := s.InitializeBoards(ctx, boards, force); err != nil {
		return nil, err
	}
	return s.Current().Boards, nil
}

func buildSeedBoard(seed SeedBoard, idGen IDGenerator, now time.Time) (domain.Board, error) {
	if err := domain.ValidateName(domain.NameKindBoard, seed.Name); err != nil {
		return domain.Board{}, err
	}
	columnNames := make([]string, 0, len(seed.Columns))
	for _, column := range seed.Columns {
		if err := domain.ValidateName(domain.NameKindColumn, column.Name); err != nil {
			return domain.Board{}, err
		}
		columnNames = append(columnNames, column.Name)
	}
	if err := domain.ValidateUniqueNames(domain.NameKindColumn, columnNames); err != nil {
		return domain.Board{}, err
	}

	columns := make([]domain.Column, 0, len(seed.Columns))
	for _, seedColumn := range seed.Columns {
		column, err := domain.NewColumn(idGen(), seedColumn.Name)
		if err != nil {
			return domain.Board{}, err
		}
		for _, seedTask := range seedColumn.Tasks {
			if strings.TrimSpace(seedTask.Status) != column.Name {
				return domain.Board{}, fmt.Errorf("task %q has status %q but is listed under %q: %w", seedTask.Name, seedTask.Status, column.Name, domain.ErrInvalidStatus)
			}
			subtasks := make([]domain.Subtask, 0, len(seedTask.Subtasks))
			for _, seedSubtask := range seedTask.Subtasks {
				subtask, err := domain.NewSubtask(idGen(), seedSubtask.Name, seedSubtask.IsCompleted)
				if err != nil {
					return domain.Board{}, err
				}
				subtasks = append(subtasks, subtask)
			}
			task, err := domain.NewTask(domain.TaskInput{
				ID:          idGen(),
				Name:        seedTask.Name,
				Description: seedTask.Description,
				Status:      seedTask.Status,
				Subtasks:    subtasks,
			}, now)
			if err != nil {
				return domain.Board{}, err
			}
			column.Tasks = append(column.Tasks, task)
		}
		columns = append(columns, column)
	}
	return domain.NewBoard(idGen(), seed.Name, columns, now)
}

func validateSeed(raw []byte) error {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	if err := compiler.AddResource(seedSchemaURL, bytes.NewReader(seedSchemaJSON)); err != nil {
		return fmt.Errorf("load seed schema: %w", err)
	}
	schema, err := compiler.Compile(seedSchemaURL)
	if err != nil {
		return fmt.Errorf("compile seed schema: %w", err)
	}

	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &SeedValidationError{Message: fmt.Sprintf("invalid json: %v", err)}
	}
	if err := schema.Validate(doc); err != nil {
		return mapSchemaError(err)
	}
	return nil
}

// mapSchemaError converts a jsonschema error into a SeedValidationError for its first leaf cause.
func mapSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SeedValidationError{Message: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return &SeedValidationError{
		Path:    jsonPointerToPath(leaf.InstanceLocation),
		Message: leaf.Message,
	}
}

// jsonPointerToPath renders "/0/columns/1/name" as "[0].columns[1].name".
func jsonPointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(strings.TrimPrefix(ptr, "#"), "/")
	if ptr == "" {
		return ""
	}
	var b strings.Builder
	for _, part := range strings.Split(ptr, "/") {
		part = strings.ReplaceAll(strings.ReplaceAll(part, "~1", "/"), "~0", "~")
		if part == "" {
			continue
		}
		if idx, err := strconv.Atoi(part); err == nil {
			fmt.Fprintf(&b, "[%d]", idx)
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
