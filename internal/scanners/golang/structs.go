package golang

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// StructScanner turns ORM-tagged structs into data entities.
type StructScanner struct {
	scanner.Base
}

func NewStructScanner() *StructScanner {
	return &StructScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "go-struct",
		DisplayName:  "Go Struct Scanner",
		Languages:    []string{"go"},
		FilePatterns: []string{goSources},
		Priority:     scanner.PriorityData,
	}}}
}

const gormModel = "gorm.Model"

var (
	ormTagMarkers = [][]byte{[]byte("`xorm:"), []byte("`gorm:"), []byte("`db:"), []byte("`sql:"), []byte(gormModel)}

	xormTagRe    = regexp.MustCompile(`xorm:"([^"]+)"`)
	gormTagRe    = regexp.MustCompile(`gorm:"([^"]+)"`)
	dbTagRe      = regexp.MustCompile(`db:"([^"]+)"`)
	sqlTagRe     = regexp.MustCompile(`sql:"([^"]+)"`)
	gormColumnRe = regexp.MustCompile(`column:([^;\s]+)`)
	primaryKeyRe = regexp.MustCompile(`(?i)\bpk\b|\bprimaryKey\b|\bprimary_key\b`)
	notNullRe    = regexp.MustCompile(`(?i)\bnot\s+null\b|\bnotnull\b`)

	snakeLowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
	snakeAcronym    = regexp.MustCompile(`([A-Z])([A-Z][a-z])`)
)

func hasORMMarker(src []byte) bool {
	for _, m := range ormTagMarkers {
		if bytes.Contains(src, m) {
			return true
		}
	}
	return false
}

func (s *StructScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sourceFiles(sc)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	err = sc.ParseEach(ctx, language, files, stats, hasORMMarker, func(rel string, res parser.Result) {
		component := packageName(rel, res)
		for _, st := range res.Of(parser.KindStruct) {
			if e, ok := entityOf(st); ok {
				e.ComponentID = component
				e.Confidence = res.Confidence()
				e.Evidence = evidence(rel, st.Line)
				result.DataEntities = append(result.DataEntities, e)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("entities", len(result.DataEntities)).
		Int("files", result.Statistics.FilesScanned).
		Msg("go orm structs scanned")
	return result, nil
}

// entityOf maps a struct to a table. Only tagged fields become columns; an
// embedded gorm.Model adds its four standard columns.
func entityOf(st parser.Construct) (model.DataEntity, bool) {
	var (
		fields     []model.Field
		primaryKey string
		embedsGorm bool
	)
	for _, f := range st.Fields {
		if f.Type == gormModel && f.Tag == "" {
			embedsGorm = true
			continue
		}
		tag := strings.Trim(f.Tag, "`")
		if !hasORMTag(tag) {
			continue
		}
		column := columnName(f.Name, tag)
		fields = append(fields, model.Field{
			Name:     column,
			DataType: sqlType(f.Type),
			Nullable: !notNullRe.MatchString(tag),
		})
		if primaryKey == "" && primaryKeyRe.MatchString(tag) {
			primaryKey = column
		}
	}
	if embedsGorm {
		fields = append(fields, gormModelFields()...)
		if primaryKey == "" {
			primaryKey = "id"
		}
	}
	if len(fields) == 0 {
		return model.DataEntity{}, false
	}
	return model.DataEntity{
		Name:        toSnakeCase(st.Name),
		Type:        "table",
		Fields:      fields,
		PrimaryKey:  primaryKey,
		Description: "Go ORM Model: " + st.Name,
	}, true
}

func hasORMTag(tag string) bool {
	return strings.Contains(tag, "xorm:") || strings.Contains(tag, "gorm:") ||
		strings.Contains(tag, "db:") || strings.Contains(tag, "sql:")
}

// columnName resolves the column from the tag, falling back to the snake_case
// field name. A leading xorm word only names the column when quoted or
// underscored, since it is usually a SQL type such as varchar(64).
func columnName(field, tag string) string {
	if m := xormTagRe.FindStringSubmatch(tag); m != nil {
		if parts := strings.Fields(m[1]); len(parts) > 0 {
			first := parts[0]
			if strings.HasPrefix(first, "'") || strings.Contains(first, "_") {
				return strings.Trim(first, `'"`)
			}
		}
	}
	if m := gormTagRe.FindStringSubmatch(tag); m != nil {
		if c := gormColumnRe.FindStringSubmatch(m[1]); c != nil {
			return c[1]
		}
	}
	for _, re := range []*regexp.Regexp{dbTagRe, sqlTagRe} {
		if m := re.FindStringSubmatch(tag); m != nil {
			name, _, _ := strings.Cut(m[1], ",")
			if name != "" && name != "-" {
				return name
			}
		}
	}
	return toSnakeCase(field)
}

func sqlType(goType string) string {
	t := strings.TrimPrefix(goType, "*")
	switch t {
	case "int", "int8", "int16", "int32", "int64", "uint", "uint8", "uint16", "uint32", "uint64":
		return "INTEGER"
	case "string":
		return "VARCHAR"
	case "bool":
		return "BOOLEAN"
	case "float32", "float64":
		return "FLOAT"
	case "time.Time":
		return "TIMESTAMP"
	case "[]byte":
		return "BLOB"
	}
	return t
}

func gormModelFields() []model.Field {
	return []model.Field{
		{Name: "id", DataType: "INTEGER", Nullable: false, Description: "Primary key"},
		{Name: "created_at", DataType: "TIMESTAMP", Nullable: true, Description: "Creation timestamp"},
		{Name: "updated_at", DataType: "TIMESTAMP", Nullable: true, Description: "Update timestamp"},
		{Name: "deleted_at", DataType: "TIMESTAMP", Nullable: true, Description: "Soft delete timestamp"},
	}
}

func toSnakeCase(s string) string {
	s = snakeLowerUpper.ReplaceAllString(s, "${1}_${2}")
	s = snakeAcronym.ReplaceAllString(s, "${1}_${2}")
	return strings.ToLower(s)
}
