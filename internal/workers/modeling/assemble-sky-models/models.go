package assembleskymodels

// Input is the job payload. Models come from an existing models file, a
// catalog (path or inline XML) or, failing both, the target's components.
type Input struct {
	Target         map[string]interface{} `json:"target"`
	Datasets       []DatasetInput         `json:"datasets"`
	CatalogPath    string                 `json:"catalogPath,omitempty"`
	CatalogXML     string                 `json:"catalogXml,omitempty"`
	ModelsPath     string                 `json:"modelsPath,omitempty"`
	IsoFile        string                 `json:"isoFile,omitempty"`
	IsoKey         string                 `json:"isoKey,omitempty"`
	GalDiffuseFile string                 `json:"galDiffuseFile,omitempty"`
	OutputPath     string                 `json:"outputPath,omitempty"`
}

type DatasetInput struct {
	Name string `json:"name"`
	Kind string `json:"kind,omitempty"`
}

type ModelSummary struct {
	Name           string   `json:"name"`
	SpectralType   string   `json:"spectralType"`
	SpatialType    string   `json:"spatialType,omitempty"`
	FreeParameters int      `json:"freeParameters"`
	DatasetsNames  []string `json:"datasetsNames,omitempty"`
}

type Output struct {
	RunID            string         `json:"runId"`
	TargetFound      bool           `json:"targetFound"`
	TargetFromConfig bool           `json:"targetFromConfig"`
	Models           []ModelSummary `json:"models"`
	Datasets         []string       `json:"datasets"`
	ModelsFile       string         `json:"modelsFile,omitempty"`
}
