// osmreduce ingests an OpenStreetMap PBF extract, reduces it to the
// subset of nodes and ways matching a configured tag filter, and serves
// radius queries over the result.
//
// Example:
//
//    osmreduce -config=./osmreduce.yaml -input=./extract.osm.pbf
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"

	"github.com/grailbio/osmreduce/cache"
	"github.com/grailbio/osmreduce/config"
	"github.com/grailbio/osmreduce/httpapi"
	"github.com/grailbio/osmreduce/intern"
	"github.com/grailbio/osmreduce/model"
	"github.com/grailbio/osmreduce/osmsource"
	"github.com/grailbio/osmreduce/pipeline"
	"github.com/grailbio/osmreduce/spatial"
)

func main() {
	configPath := flag.String("config", "", "Path to the YAML configuration file.")
	inputPath := flag.String("input", "", "Path to the input .osm.pbf file.")
	workers := flag.Int("workers", 0, "Number of preprocessing workers (default: GOMAXPROCS).")

	cleanup := grail.Init()
	defer cleanup()

	if *configPath == "" || *inputPath == "" {
		log.Fatal("both -config and -input are required")
	}

	if err := run(*configPath, *inputPath, *workers); err != nil {
		log.Error.Printf("%+v", err)
		os.Exit(1)
	}
}

func run(configPath, inputPath string, workers int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.Wrap(err, "load configuration")
	}

	if err := os.MkdirAll(cfg.Storage.CacheDir, 0755); err != nil {
		return errors.Wrap(err, "create cache directory")
	}

	stat, err := os.Stat(inputPath)
	if err != nil {
		return errors.Wrap(err, "stat input file")
	}
	fingerprint := model.ComputeFingerprint(
		inputPath, stat.Size(), stat.ModTime(),
		cfg.Filters.PrimaryKeys, cfg.Filters.AttributeKeys,
	)

	cachePath := cache.Path(cfg.Storage.CacheDir)

	elements, tagSets, strings, err := loadOrPreprocess(cfg, inputPath, cachePath, fingerprint, workers)
	if err != nil {
		return err
	}
	if cfg.Runtime.DropInternerMap {
		strings.DropMap()
	}

	index := spatial.Build(elements)
	server := httpapi.New(index, tagSets, strings)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	server.Register(engine)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, engine); err != nil {
		return errors.Wrap(err, "serve http")
	}
	return nil
}

func loadOrPreprocess(cfg *config.Config, inputPath, cachePath string, fingerprint model.Fingerprint, workers int) (
	[]model.Element, *model.FlatTagSetStore, *intern.Pool, error,
) {
	if env, ok := cache.Load(cachePath, fingerprint); ok {
		log.Printf("cache hit: %s", cachePath)
		return env.Elements, env.TagSets, env.Strings, nil
	}
	log.Printf("cache miss: preprocessing %s", inputPath)

	source := osmsource.PBFSource{Path: inputPath}
	result, err := pipeline.Run(source, pipeline.Filters{
		PrimaryKeys:   cfg.Filters.PrimaryKeys,
		AttributeKeys: cfg.Filters.AttributeKeys,
	}, workers)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, "preprocess")
	}

	env := &cache.Envelope{
		Elements:    result.Elements,
		TagSets:     result.TagSets,
		Strings:     result.Strings,
		Fingerprint: fingerprint,
	}
	if err := cache.Store(cachePath, env, cfg.Storage.CompressionLevel); err != nil {
		log.Error.Printf("cache write failed, continuing in memory: %+v", err)
	}

	return result.Elements, result.TagSets, result.Strings, nil
}
