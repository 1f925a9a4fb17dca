package golang

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"archscan/internal/confidence"
	"archscan/internal/model"
	"archscan/internal/parser"
	"archscan/internal/scanner"
)

// KafkaScanner finds topics produced and consumed with segmentio/kafka-go,
// IBM/sarama and confluent-kafka-go.
type KafkaScanner struct {
	scanner.Base
}

func NewKafkaScanner() *KafkaScanner {
	return &KafkaScanner{Base: scanner.Base{Meta: scanner.Info{
		ID:           "go-kafka",
		DisplayName:  "Go Kafka Scanner",
		Languages:    []string{"go"},
		FilePatterns: []string{goSources},
		Priority:     scanner.PriorityData,
	}}}
}

// AppliesTo requires Go sources and a kafka client among the dependencies
// found by earlier scanners.
func (s *KafkaScanner) AppliesTo(sc *scanner.Context) bool {
	return scanner.All(
		scanner.HasFiles(goSources),
		scanner.HasDependency("kafka", "sarama"),
	)(sc)
}

const broker = "kafka"

var (
	kafkaMarkers = [][]byte{[]byte("kafka"), []byte("sarama")}

	// Composite literals whose Topic field names a topic. gofmt never puts a
	// space before the brace, which keeps signatures such as *kafka.Writer { out.
	producerLiteralRe = regexp.MustCompile(`\b(?:kafka\.Writer|kafka\.WriterConfig|sarama\.ProducerMessage)\{`)
	consumerLiteralRe = regexp.MustCompile(`\b(?:kafka\.ReaderConfig|kafka\.Reader)\{`)

	topicFieldRe       = regexp.MustCompile(`\bTopic:\s*"([^"]+)"`)
	groupTopicsFieldRe = regexp.MustCompile(`\bGroupTopics:\s*\[\]string\{([^}]*)\}`)

	consumePartitionRe = regexp.MustCompile(`\.ConsumePartition\(\s*"([^"]+)"`)
	consumeGroupRe     = regexp.MustCompile(`\.Consume\(\s*[\w.]+\s*,\s*\[\]string\{([^}]*)\}`)
	subscribeTopicsRe  = regexp.MustCompile(`\.SubscribeTopics\(\s*\[\]string\{([^}]*)\}`)
	subscribeRe        = regexp.MustCompile(`\.Subscribe\(\s*"([^"]+)"`)

	stringLitRe = regexp.MustCompile(`"([^"]+)"`)
)

func (s *KafkaScanner) Scan(ctx context.Context, sc *scanner.Context) (*scanner.Result, error) {
	files, err := sourceFiles(sc)
	if err != nil {
		return nil, err
	}
	result := scanner.NewResult(s.ID())
	stats := scanner.NewStatisticsBuilder().Discovered(len(files))

	for _, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := sc.ReadFile(rel)
		if err != nil {
			stats.FileScanned().Failed("read_error", err.Error())
			continue
		}
		if !mentionsKafka(src) {
			continue
		}
		// Topics come from text patterns only, never from a syntax tree.
		stats.FileScanned().ParsedWithFallback()

		text := string(src)
		component := goPackageOf(rel, text)
		for _, t := range producedTopics(text) {
			result.MessageFlows = append(result.MessageFlows, model.MessageFlow{
				PublisherID: component,
				Topic:       t.name,
				Broker:      broker,
				Confidence:  confidence.Medium,
				Evidence:    evidence(rel, t.line),
			})
			result.Relationships = append(result.Relationships, topicRelationship(component, t.name, model.RelPublishes))
		}
		for _, t := range consumedTopics(text) {
			result.MessageFlows = append(result.MessageFlows, model.MessageFlow{
				SubscriberID: component,
				Topic:        t.name,
				Broker:       broker,
				Confidence:   confidence.Medium,
				Evidence:     evidence(rel, t.line),
			})
			result.Relationships = append(result.Relationships, topicRelationship(component, t.name, model.RelSubscribes))
		}
	}

	result.Statistics = stats.Build()
	sc.Logger().Info().
		Int("flows", len(result.MessageFlows)).
		Int("files", result.Statistics.FilesScanned).
		Msg("go kafka usage scanned")
	return result, nil
}

func mentionsKafka(src []byte) bool {
	for _, m := range kafkaMarkers {
		if bytes.Contains(src, m) {
			return true
		}
	}
	return false
}

var goPackageRe = regexp.MustCompile(`(?m)^package\s+(\w+)`)

// goPackageOf is packageName for files read without the parser.
func goPackageOf(rel, text string) string {
	if m := goPackageRe.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return packageName(rel, parser.Result{})
}

type topicRef struct {
	name string
	line int
}

func producedTopics(text string) []topicRef {
	var out []topicRef
	for _, loc := range producerLiteralRe.FindAllStringIndex(text, -1) {
		body, start := literalBody(text, loc[1]-1)
		for _, m := range topicFieldRe.FindAllStringSubmatchIndex(body, -1) {
			out = append(out, topicRef{name: body[m[2]:m[3]], line: lineOf(text, start+m[0])})
		}
	}
	return out
}

func consumedTopics(text string) []topicRef {
	var out []topicRef
	for _, loc := range consumerLiteralRe.FindAllStringIndex(text, -1) {
		body, start := literalBody(text, loc[1]-1)
		for _, m := range topicFieldRe.FindAllStringSubmatchIndex(body, -1) {
			out = append(out, topicRef{name: body[m[2]:m[3]], line: lineOf(text, start+m[0])})
		}
		for _, m := range groupTopicsFieldRe.FindAllStringSubmatchIndex(body, -1) {
			out = append(out, listTopics(body[m[2]:m[3]], lineOf(text, start+m[0]))...)
		}
	}
	for _, m := range consumePartitionRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, topicRef{name: text[m[2]:m[3]], line: lineOf(text, m[0])})
	}
	for _, m := range subscribeRe.FindAllStringSubmatchIndex(text, -1) {
		out = append(out, topicRef{name: text[m[2]:m[3]], line: lineOf(text, m[0])})
	}
	for _, re := range []*regexp.Regexp{consumeGroupRe, subscribeTopicsRe} {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			out = append(out, listTopics(text[m[2]:m[3]], lineOf(text, m[0]))...)
		}
	}
	return out
}

// literalBody returns the text between the brace at open and its match, and
// the offset where that text starts.
func literalBody(text string, open int) (string, int) {
	depth := 0
	for i := open; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[open+1 : i], open + 1
			}
		}
	}
	return text[open+1:], open + 1
}

func listTopics(list string, line int) []topicRef {
	var out []topicRef
	for _, m := range stringLitRe.FindAllStringSubmatch(list, -1) {
		out = append(out, topicRef{name: m[1], line: line})
	}
	return out
}

func topicRelationship(component, topic string, kind model.RelationshipType) model.Relationship {
	verb := "publishes to"
	if kind == model.RelSubscribes {
		verb = "subscribes to"
	}
	return model.Relationship{
		SourceID:    component,
		TargetID:    broker + ":" + topic,
		Type:        kind,
		Description: verb + " kafka topic " + topic,
		Technology:  broker,
		Confidence:  confidence.Medium,
	}
}

func lineOf(text string, offset int) int {
	return strings.Count(text[:offset], "\n") + 1
}
