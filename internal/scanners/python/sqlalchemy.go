package python

import (
	"bytes"
	"context"
	"regexp"
	"sort"
	"strings"

	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// SQLAlchemyScanner turns declarative SQLAlchemy models into data entities.
// Both Column() and the 2.0 mapped_column() styles are understood.
type SQLAlchemyScanner struct {
	scanner.Base
}

func NewSQLAlchemyScanner() *SQLAlchemyScanner {
	return &SQLAlchemyScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "sqlalchemy-entities",
		DisplayName:  "SQLAlchemy Entity Scanner",
		Languages:    []string{"python"},
		FilePatterns: []string{pySources},
		Priority:     scanner.PriorityData,
	}}}
}

const sqlalchemyTechnology = "SQLAlchemy"

var (
	tablenameRe = regexp.MustCompile(`^\s+__tablename__\s*=\s*['"]([^'"]+)['"]`)
	abstractRe  = regexp.MustCompile(`^\s+__abstract__\s*=\s*True\b`)

	// attribute, optional annotation and the mapping function on the right.
	attributeRe  = regexp.MustCompile(`^\s+(\w+)\s*(?::\s*([^=]+?))?\s*=\s*(?:[\w.]+\.)?(Column|mapped_column|relationship)\(`)
	foreignKeyRe = regexp.MustCompile(`ForeignKey\(\s*['"]([\w.]+)['"]`)
	mappedRe     = regexp.MustCompile(`^Mapped\[(.+)\]$`)
	optionalRe   = regexp.MustCompile(`^Optional\[(.+)\]$`)

	// Mapped[List["Post"]] and Mapped["User"] name the related class.
	relatedRe = regexp.MustCompile(`(\w+)['"]?\]*$`)
	identRe   = regexp.MustCompile(`^[A-Za-z_]\w*$`)

	pySnakeLowerUpper = regexp.MustCompile(`([a-z0-9])([A-Z])`)
)

var annotationTypes = map[string]string{
	"int":      "Integer",
	"str":      "String",
	"bool":     "Boolean",
	"float":    "Float",
	"bytes":    "LargeBinary",
	"datetime": "DateTime",
	"date":     "Date",
	"Decimal":  "Numeric",
	"UUID":     "Uuid",
}

// mentionsSQLAlchemy keeps files that import SQLAlchemy, including through
// Flask-SQLAlchemy. Django models never match.
func mentionsSQLAlchemy(src []byte) bool {
	if bytes.Contains(src, []byte("django.db")) {
		return false
	}
	return bytes.Contains(src, []byte("sqlalchemy")) || bytes.Contains(src, []byte("declarative_base"))
}

func (s *SQLAlchemyScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sc.FindFiles(pySources)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder()

	var models []ormModel
	err = sc.ParseEach(ctx, language, files, stats, mentionsSQLAlchemy, func(rel string, res parser.Result) {
		src, err := sc.ReadFile(rel)
		if err != nil {
			result.Warnf("%s: %v", rel, err)
			return
		}
		models = append(models, sqlalchemyModels(rel, strings.Split(string(src), "\n"), res)...)
	})
	if err != nil {
		return nil, err
	}

	// Relationships name classes; entities are keyed by table.
	tables := make(map[string]string, len(models))
	for _, m := range models {
		tables[m.class] = m.entity.Name
	}
	for _, m := range models {
		result.DataEntities = append(result.DataEntities, m.entity)
		for _, r := range m.links {
			if table, ok := tables[r.TargetID]; ok {
				r.TargetID = table
			}
			result.Relationships = append(result.Relationships, r)
		}
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("entities", len(result.DataEntities)).
		Int("relationships", len(result.Relationships)).
		Int("files", result.Statistics.FilesScanned).
		Msg("sqlalchemy models scanned")
	return result, nil
}

type ormModel struct {
	class  string
	entity model.DataEntity
	links  []model.Relationship
}

// sqlalchemyModels reads every class with at least one mapped column. A
// class body runs until the next class definition.
func sqlalchemyModels(rel string, lines []string, res parser.Result) []ormModel {
	classes := res.Of(parser.KindClass)
	sort.SliceStable(classes, func(i, j int) bool { return classes[i].Line < classes[j].Line })
	calls := res.Of(parser.KindCall)

	var out []ormModel
	for i, c := range classes {
		if len(c.Bases) == 0 {
			continue
		}
		end := len(lines)
		if i+1 < len(classes) {
			end = classes[i+1].Line - 1
		}
		if m, ok := ormModelOf(rel, c, lines, calls, end, res); ok {
			out = append(out, m)
		}
	}
	return out
}

func ormModelOf(rel string, class parser.Construct, lines []string, calls []parser.Construct, end int, res parser.Result) (ormModel, bool) {
	table := toSnake(class.Name)
	for _, l := range lines[class.Line:min(end, len(lines))] {
		if abstractRe.MatchString(l) {
			return ormModel{}, false
		}
		if m := tablenameRe.FindStringSubmatch(l); m != nil {
			table = m[1]
		}
	}

	m := ormModel{class: class.Name}
	var primaryKey string
	seen := make(map[int]bool)
	for _, call := range calls {
		if call.Line <= class.Line || call.Line > end || call.Line > len(lines) || seen[call.Line] {
			continue
		}
		attr := attributeRe.FindStringSubmatch(lines[call.Line-1])
		if attr == nil || attr[3] != call.Name || strings.HasPrefix(attr[1], "_") {
			continue
		}
		seen[call.Line] = true

		if call.Name == "relationship" {
			if target, ok := relationTarget(call, attr[2]); ok {
				m.links = append(m.links, model.Relationship{
					SourceID:    table,
					TargetID:    target,
					Type:        model.RelDependsOn,
					Description: "SQLAlchemy relationship " + class.Name + "." + attr[1],
					Technology:  sqlalchemyTechnology,
					Confidence:  res.Confidence(),
				})
			}
			continue
		}

		field, pk := columnOf(attr[1], strings.TrimSpace(attr[2]), call)
		m.entity.Fields = append(m.entity.Fields, field)
		if pk && primaryKey == "" {
			primaryKey = field.Name
		}
		for _, a := range call.Args {
			if fk := foreignKeyRe.FindStringSubmatch(a); fk != nil {
				target, _, _ := strings.Cut(fk[1], ".")
				m.links = append(m.links, model.Relationship{
					SourceID:    table,
					TargetID:    target,
					Type:        model.RelDependsOn,
					Description: "Foreign key " + table + "." + field.Name + " -> " + fk[1],
					Technology:  sqlalchemyTechnology,
					Confidence:  res.Confidence(),
				})
			}
		}
	}
	if len(m.entity.Fields) == 0 {
		return ormModel{}, false
	}

	m.entity = model.DataEntity{
		ComponentID: moduleName(rel),
		Name:        table,
		Type:        "table",
		Fields:      m.entity.Fields,
		PrimaryKey:  primaryKey,
		Description: "SQLAlchemy Model: " + class.Name,
		Confidence:  res.Confidence(),
		Evidence:    evidence(rel, class.Line),
	}
	return m, true
}

// columnOf reads one Column() or mapped_column() call. An explicit column
// name given as the first string argument or as name= wins over the
// attribute name.
func columnOf(attribute, annotation string, call parser.Construct) (model.Field, bool) {
	field := model.Field{Name: attribute}
	if v, ok := call.KeywordArg("name"); ok {
		if name, ok := parser.Unquote(v); ok {
			field.Name = name
		}
	}

	for i := 0; ; i++ {
		arg, ok := call.PositionalArg(i)
		if !ok {
			break
		}
		if name, quoted := parser.Unquote(arg); quoted {
			if i == 0 {
				field.Name = name
			}
			continue
		}
		if strings.HasPrefix(arg, "ForeignKey(") || field.DataType != "" {
			continue
		}
		field.DataType = typeName(arg)
	}

	optional := false
	if m := mappedRe.FindStringSubmatch(annotation); m != nil {
		inner := strings.TrimSpace(m[1])
		if o := optionalRe.FindStringSubmatch(inner); o != nil {
			inner, optional = o[1], true
		} else if t, none := strings.CutSuffix(inner, "| None"); none {
			inner, optional = strings.TrimSpace(t), true
		}
		if field.DataType == "" {
			field.DataType = annotationType(inner)
		}
	}

	pk := isTrue(call, "primary_key")
	switch v, ok := call.KeywordArg("nullable"); {
	case ok:
		field.Nullable = v == "True"
	case pk:
		field.Nullable = false
	case call.Name == "mapped_column" && annotation != "":
		field.Nullable = optional
	default:
		field.Nullable = true
	}
	return field, pk
}

// relationTarget is the class named by relationship("Post") or
// relationship(Post), or in the 2.0 style by the Mapped annotation.
func relationTarget(call parser.Construct, annotation string) (string, bool) {
	if target, ok := call.StringArg(0); ok && target != "" {
		return target, true
	}
	if arg, ok := call.PositionalArg(0); ok && identRe.MatchString(arg) {
		return arg, true
	}
	if m := mappedRe.FindStringSubmatch(strings.TrimSpace(annotation)); m != nil {
		if t := relatedRe.FindStringSubmatch(strings.TrimSpace(m[1])); t != nil {
			return t[1], true
		}
	}
	return "", false
}

func isTrue(call parser.Construct, keyword string) bool {
	v, ok := call.KeywordArg(keyword)
	return ok && v == "True"
}

// typeName reduces a type expression such as sa.String(100) to String.
func typeName(expr string) string {
	if i := strings.IndexByte(expr, '('); i >= 0 {
		expr = expr[:i]
	}
	if i := strings.LastIndexByte(expr, '.'); i >= 0 {
		expr = expr[i+1:]
	}
	return strings.TrimSpace(expr)
}

func annotationType(t string) string {
	t = typeName(t)
	if mapped, ok := annotationTypes[t]; ok {
		return mapped
	}
	return t
}

func toSnake(s string) string {
	return strings.ToLower(pySnakeLowerUpper.ReplaceAllString(s, "${1}_${2}"))
}
