package model

import "archscan/internal/confidence"

// ComponentType classifies a Component.
type ComponentType string

const (
	ComponentService       ComponentType = "SERVICE"
	ComponentModule        ComponentType = "MODULE"
	ComponentLibrary       ComponentType = "LIBRARY"
	ComponentExternal      ComponentType = "EXTERNAL"
	ComponentDatabase      ComponentType = "DATABASE"
	ComponentMessageBroker ComponentType = "MESSAGE_BROKER"
	ComponentAPIGateway    ComponentType = "API_GATEWAY"
	ComponentLoadBalancer  ComponentType = "LOAD_BALANCER"
	ComponentCache         ComponentType = "CACHE"
	ComponentUnknown       ComponentType = "UNKNOWN"
)

// RelationshipType describes how two components interact.
type RelationshipType string

const (
	RelCalls      RelationshipType = "CALLS"
	RelUses       RelationshipType = "USES"
	RelPublishes  RelationshipType = "PUBLISHES"
	RelSubscribes RelationshipType = "SUBSCRIBES"
	RelDependsOn  RelationshipType = "DEPENDS_ON"
	RelReadsFrom  RelationshipType = "READS_FROM"
	RelWritesTo   RelationshipType = "WRITES_TO"
	RelContains   RelationshipType = "CONTAINS"
	RelDeployedOn RelationshipType = "DEPLOYED_ON"
)

// APIType is the protocol family of an endpoint.
type APIType string

const (
	APIRest                APIType = "REST"
	APIGraphQLQuery        APIType = "GRAPHQL_QUERY"
	APIGraphQLMutation     APIType = "GRAPHQL_MUTATION"
	APIGraphQLSubscription APIType = "GRAPHQL_SUBSCRIPTION"
	APIGRPC                APIType = "GRPC"
	APIWebSocket           APIType = "WEBSOCKET"
	APISOAP                APIType = "SOAP"
)

// Dependency scopes.
const (
	ScopeCompile  = "compile"
	ScopeTest     = "test"
	ScopeProvided = "provided"
	ScopeOptional = "optional"
)

// Evidence describes where a fact was found.
type Evidence struct {
	Filepath  string `json:"filepath"`
	StartLine int    `json:"start_line,omitempty"`
}

// Component is a deployable or logical unit of the architecture.
type Component struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        ComponentType     `json:"type"`
	Description string            `json:"description,omitempty"`
	Technology  string            `json:"technology,omitempty"`
	Repository  string            `json:"repository,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Confidence  confidence.Level  `json:"confidence,omitempty"`
	Evidence    *Evidence         `json:"evidence,omitempty"`
}

// Dependency is a declared library or module requirement of a component.
type Dependency struct {
	SourceComponentID string           `json:"source_component_id"`
	GroupID           string           `json:"group_id,omitempty"`
	ArtifactID        string           `json:"artifact_id"`
	Version           string           `json:"version,omitempty"`
	Scope             string           `json:"scope"`
	Direct            bool             `json:"direct"`
	Confidence        confidence.Level `json:"confidence,omitempty"`
	Evidence          *Evidence        `json:"evidence,omitempty"`
}

// APIEndpoint is an externally reachable operation exposed by a component.
type APIEndpoint struct {
	ComponentID    string           `json:"component_id"`
	Type           APIType          `json:"type"`
	Path           string           `json:"path"`
	Method         string           `json:"method,omitempty"`
	Description    string           `json:"description,omitempty"`
	RequestSchema  string           `json:"request_schema,omitempty"`
	ResponseSchema string           `json:"response_schema,omitempty"`
	Authentication string           `json:"authentication,omitempty"`
	Confidence     confidence.Level `json:"confidence,omitempty"`
	Evidence       *Evidence        `json:"evidence,omitempty"`
}

// MessageFlow is an asynchronous message exchange over a topic or queue.
type MessageFlow struct {
	PublisherID  string           `json:"publisher_id,omitempty"`
	SubscriberID string           `json:"subscriber_id,omitempty"`
	Topic        string           `json:"topic"`
	MessageType  string           `json:"message_type,omitempty"`
	Schema       string           `json:"schema,omitempty"`
	Broker       string           `json:"broker,omitempty"`
	Confidence   confidence.Level `json:"confidence,omitempty"`
	Evidence     *Evidence        `json:"evidence,omitempty"`
}

// Field is a column or attribute of a DataEntity.
type Field struct {
	Name        string `json:"name"`
	DataType    string `json:"data_type"`
	Nullable    bool   `json:"nullable"`
	Description string `json:"description,omitempty"`
}

// DataEntity is a persisted record shape such as a table or document.
type DataEntity struct {
	ComponentID string           `json:"component_id"`
	Name        string           `json:"name"`
	Type        string           `json:"type"`
	Fields      []Field          `json:"fields,omitempty"`
	PrimaryKey  string           `json:"primary_key,omitempty"`
	Description string           `json:"description,omitempty"`
	Confidence  confidence.Level `json:"confidence,omitempty"`
	Evidence    *Evidence        `json:"evidence,omitempty"`
}

// Relationship is a directed edge between two components.
type Relationship struct {
	SourceID    string           `json:"source_id"`
	TargetID    string           `json:"target_id"`
	Type        RelationshipType `json:"type"`
	Description string           `json:"description,omitempty"`
	Technology  string           `json:"technology,omitempty"`
	Confidence  confidence.Level `json:"confidence,omitempty"`
}

// Repository is a source repository that was part of the scan.
type Repository struct {
	Name string `json:"name"`
	Path string `json:"path,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Architecture is the unified, deduplicated model of one scan run.
type Architecture struct {
	ProjectName    string         `json:"project_name"`
	ProjectVersion string         `json:"project_version"`
	Repositories   []Repository   `json:"repositories"`
	Components     []Component    `json:"components"`
	Dependencies   []Dependency   `json:"dependencies"`
	Relationships  []Relationship `json:"relationships"`
	APIEndpoints   []APIEndpoint  `json:"api_endpoints"`
	MessageFlows   []MessageFlow  `json:"message_flows"`
	DataEntities   []DataEntity   `json:"data_entities"`
}

// Counts returns the size of each fact collection keyed by collection name.
func (a *Architecture) Counts() map[string]int {
	return map[string]int{
		"components":    len(a.Components),
		"dependencies":  len(a.Dependencies),
		"relationships": len(a.Relationships),
		"api_endpoints": len(a.APIEndpoints),
		"message_flows": len(a.MessageFlows),
		"data_entities": len(a.DataEntities),
	}
}
