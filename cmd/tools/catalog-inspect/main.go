// cmd/tools/catalog-inspect/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"skymodel-workers/internal/catalog"
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
	"skymodel-workers/internal/modeling"
	"skymodel-workers/internal/target"
)

func main() {
	translateCmd := flag.NewFlagSet("translate", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)
	familiesCmd := flag.NewFlagSet("families", flag.ExitOnError)

	// Translate command flags
	catalogPath := translateCmd.String("catalog", "", "Path to the XML source catalog")
	configPath := translateCmd.String("config", "", "Analysis config with a target section")
	sourceName := translateCmd.String("target", "", "Target source name (when no config is given)")
	outPath := translateCmd.String("out", "", "Write the models file here instead of stdout")
	eblDir := translateCmd.String("ebl-data", os.Getenv("SKYMODEL_EBL_DATA_DIR"), "Directory of builtin EBL tables")
	templatesDir := translateCmd.String("templates", "", "Directory of spatial template maps")
	logLevel := translateCmd.String("log-level", "warn", "Log level")

	// Validate command flags
	validatePath := validateCmd.String("config", "", "Analysis config to validate")
	validateEBL := validateCmd.String("ebl-data", os.Getenv("SKYMODEL_EBL_DATA_DIR"), "Directory of builtin EBL tables")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "translate":
		translateCmd.Parse(os.Args[2:])
		if *catalogPath == "" || (*configPath == "" && *sourceName == "") {
			fmt.Println("Error: catalog and one of config or target are required for translate.")
			translateCmd.Usage()
			os.Exit(1)
		}
		log := logger.NewStructured(*logLevel, "console")
		if err := translate(*catalogPath, *configPath, *sourceName, *outPath, *eblDir, *templatesDir, log); err != nil {
			fail(err)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if *validatePath == "" {
			fmt.Println("Error: config is required for validate.")
			validateCmd.Usage()
			os.Exit(1)
		}
		if err := validate(*validatePath, *validateEBL); err != nil {
			fail(err)
		}

	case "families":
		familiesCmd.Parse(os.Args[2:])
		families()

	default:
		help()
		os.Exit(1)
	}
}

func translate(catalogPath, configPath, sourceName, outPath, eblDir, templatesDir string, log logger.Logger) error {
	tgt := &target.Target{SourceName: sourceName}
	if configPath != "" {
		var err error
		if tgt, err = target.LoadFile(configPath); err != nil {
			return err
		}
	}

	lib, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}

	builder := modeling.NewBuilder(eblDir, nil, nil, log)
	models, found, err := target.NewAssembler(builder, templatesDir, log).AssembleCatalog(tgt, lib)
	if err != nil {
		return err
	}
	if !found {
		fmt.Fprintf(os.Stderr, "warning: %q not found in %s\n", tgt.SourceName, catalogPath)
	}

	if outPath != "" {
		if err := modeling.WriteModels(outPath, models); err != nil {
			return err
		}
		fmt.Printf("Wrote %d models to %s\n", models.Len(), outPath)
		return nil
	}

	data, err := modeling.MarshalModels(models)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

func validate(path, eblDir string) error {
	tgt, err := target.LoadFile(path)
	if err != nil {
		return err
	}
	fmt.Printf("Target %q: %d component(s)\n", tgt.SourceName, len(tgt.Components))

	if len(tgt.Components) > 0 {
		m, err := target.SkyModelFromConfig(tgt, modeling.NewBuilder(eblDir, nil, nil, nil))
		if err != nil {
			return err
		}
		fmt.Printf("  spectral: %s\n", m.Spectral.Spec().Type)
		if m.Spatial != nil {
			fmt.Printf("  spatial:  %s\n", m.Spatial.Spec().Type)
		}
		fmt.Printf("  free parameters: %s\n", strings.Join(m.Parameters().Free().Names(), ", "))
	}
	fmt.Println("OK")
	return nil
}

func families() {
	fmt.Println("Spectral model tags:")
	for _, tag := range modeling.SpectralTags() {
		fmt.Printf("  %s\n", tag)
	}
	fmt.Println("Spatial model tags:")
	for _, tag := range modeling.SpatialTagList() {
		fmt.Printf("  %s\n", tag)
	}
	fmt.Println("EBL references:")
	for _, ref := range modeling.EBLReferences() {
		fmt.Printf("  %s\n", ref)
	}
}

func fail(err error) {
	stdErr := errors.Normalize(err)
	fmt.Fprintf(os.Stderr, "Error: %s\n", stdErr.Error())
	os.Exit(1)
}

func help() {
	fmt.Println("Usage: catalog-inspect <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  translate -catalog <xml> (-config <yaml> | -target <name>) [-out <models.yaml>]")
	fmt.Println("  validate  -config <yaml>")
	fmt.Println("  families")
}
