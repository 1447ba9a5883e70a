package types

import "time"

// VectorService is the closed set of remote vector backends a Server
// deployment may point at (spec §6).
type VectorService string

const (
	VectorServicePgVector      VectorService = "PgVector"
	VectorServiceLanceDB       VectorService = "LanceDB"
	VectorServicePinecone      VectorService = "Pinecone"
	VectorServiceQdrant        VectorService = "Qdrant"
	VectorServiceMilvus        VectorService = "Milvus"
	VectorServiceWeaviate      VectorService = "Weaviate"
	VectorServiceChroma        VectorService = "Chroma"
	VectorServiceElasticsearch VectorService = "Elasticsearch"
	VectorServiceRedis         VectorService = "Redis"
	VectorServiceMongoDB       VectorService = "MongoDB"
	VectorServiceSupabase      VectorService = "Supabase"
	VectorServiceFAISS         VectorService = "FAISS"
	VectorServiceAzureAISearch VectorService = "AzureAISearch"
	VectorServiceMemory        VectorService = "Memory"
)

// VectorServiceCapabilities carries the two capability flags spec §6
// requires for every VectorService tag.
type VectorServiceCapabilities struct {
	Service         VectorService
	IsCloudHosted   bool
	SupportsEmbedded bool
}

// KnownVectorServices enumerates the capability flags for each closed-set
// VectorService variant.
var KnownVectorServices = map[VectorService]VectorServiceCapabilities{
	VectorServicePgVector:      {VectorServicePgVector, false, true},
	VectorServiceLanceDB:       {VectorServiceLanceDB, false, true},
	VectorServicePinecone:      {VectorServicePinecone, true, false},
	VectorServiceQdrant:        {VectorServiceQdrant, true, true},
	VectorServiceMilvus:        {VectorServiceMilvus, true, true},
	VectorServiceWeaviate:      {VectorServiceWeaviate, true, true},
	VectorServiceChroma:        {VectorServiceChroma, false, true},
	VectorServiceElasticsearch: {VectorServiceElasticsearch, true, true},
	VectorServiceRedis:         {VectorServiceRedis, true, true},
	VectorServiceMongoDB:       {VectorServiceMongoDB, true, true},
	VectorServiceSupabase:      {VectorServiceSupabase, true, false},
	VectorServiceFAISS:         {VectorServiceFAISS, false, true},
	VectorServiceAzureAISearch: {VectorServiceAzureAISearch, true, false},
	VectorServiceMemory:        {VectorServiceMemory, false, true},
}

// PoolConfig configures the Server deployment's repository connection pool.
type PoolConfig struct {
	MinConns        int
	MaxConns        int
	ConnectTimeout  time.Duration
	IdleTimeout     time.Duration
	MaxConnLifetime time.Duration
}

// EmbeddedConfig is the Embedded variant of DeploymentMode.
type EmbeddedConfig struct {
	DBPath          string
	VectorPath      string
	VectorDimension int
	EnableWAL       bool
	CacheSizeKB     int
}

// ServerConfig is the Server variant of DeploymentMode.
type ServerConfig struct {
	DatabaseURL     string
	VectorService   VectorService
	VectorDimension int
	VectorConfig    map[string]any
	Pool            PoolConfig
}

// DeploymentMode is the tagged union described in spec §3/§6. Exactly one
// of Embedded or Server is non-nil; it is immutable once DeploymentAssembly
// has consumed it.
type DeploymentMode struct {
	Embedded *EmbeddedConfig
	Server   *ServerConfig
}

// IsEmbedded reports whether this mode selects the embedded variant.
func (d DeploymentMode) IsEmbedded() bool { return d.Embedded != nil }

// IsServer reports whether this mode selects the server variant.
func (d DeploymentMode) IsServer() bool { return d.Server != nil }

// Dimension returns the deployment-wide embedding dimension regardless of
// which variant is active.
func (d DeploymentMode) Dimension() int {
	switch {
	case d.Embedded != nil:
		return d.Embedded.VectorDimension
	case d.Server != nil:
		return d.Server.VectorDimension
	default:
		return 0
	}
}

// CapabilityTimeouts carries the per-capability timeouts spec §5 requires
// deployments to supply.
type CapabilityTimeouts struct {
	LLM         time.Duration
	Embedder    time.Duration
	Repository  time.Duration
	Vector      time.Duration
	RemoteCache time.Duration
}

// DefaultCapabilityTimeouts returns a conservative default timeout set.
func DefaultCapabilityTimeouts() CapabilityTimeouts {
	return CapabilityTimeouts{
		LLM:         20 * time.Second,
		Embedder:    10 * time.Second,
		Repository:  5 * time.Second,
		Vector:      5 * time.Second,
		RemoteCache: 2 * time.Second,
	}
}
