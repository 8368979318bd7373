// Package ingest turns a raw file into a hosted asset: an optional transcode
// followed by exactly one upload.
package ingest

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mataager/SwiftStore/internal/asset"
	"github.com/mataager/SwiftStore/internal/media/sniffer"
	"github.com/mataager/SwiftStore/internal/media/svg"
	"github.com/mataager/SwiftStore/internal/metrics"
	"github.com/mataager/SwiftStore/internal/transcode"
	"github.com/mataager/SwiftStore/internal/upload"
)

type Transcoder interface {
	Transcode(ctx context.Context, src asset.Source, opts transcode.Options) (transcode.Result, error)
}

type Backends interface {
	Get(p upload.Provider) (upload.Backend, error)
}

type Pipeline struct {
	transcoder Transcoder
	backends   Backends
	log        zerolog.Logger
}

func NewPipeline(transcoder Transcoder, backends Backends, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		transcoder: transcoder,
		backends:   backends,
		log:        log.With().Str("component", "ingest").Logger(),
	}
}

// Ingest uploads file to provider. With non-nil opts a raster image is
// transcoded first and only the encoded bytes reach the backend. Errors from
// the transcoder and the backend are returned wrapped but otherwise as is;
// a failed upload is never retried against another provider.
func (p *Pipeline) Ingest(ctx context.Context, file asset.Source, provider upload.Provider, creds upload.Credentials, opts *transcode.Options) (upload.Result, error) {
	started := time.Now()

	backend, err := p.backends.Get(provider)
	if err != nil {
		return upload.Result{}, err
	}
	if err := upload.CheckCredentials(provider, creds); err != nil {
		return upload.Result{}, err
	}

	file.MIME = resolveMIME(file)

	prepared, err := p.prepare(ctx, file, opts)
	if err != nil {
		p.observe(provider, started, err)
		return upload.Result{}, err
	}

	result, err := backend.Upload(ctx, prepared, creds)
	p.observe(provider, started, err)
	if err != nil {
		return upload.Result{}, fmt.Errorf("upload to %s: %w", provider, err)
	}

	p.log.Info().
		Str("provider", string(provider)).
		Str("mime", prepared.MIME).
		Int64("bytes", prepared.Size()).
		Str("url", result.URL).
		Dur("took", time.Since(started)).
		Msg("asset ingested")

	return result, nil
}

func (p *Pipeline) prepare(ctx context.Context, file asset.Source, opts *transcode.Options) (asset.Source, error) {
	switch {
	case opts != nil && sniffer.IsRaster(file.MIME):
		res, err := p.transcoder.Transcode(ctx, file, *opts)
		if err != nil {
			return asset.Source{}, fmt.Errorf("transcode %s: %w", file.Name, err)
		}
		metrics.TranscodePasses.WithLabelValues(strconv.Itoa(res.Passes)).Inc()
		if res.OverBudget(*opts) {
			metrics.TranscodeOverBudget.Inc()
			p.log.Warn().
				Str("file", file.Name).
				Int64("bytes", res.Size()).
				Int("maxSizeKB", opts.Normalize().MaxSizeKB).
				Msg("transcoded asset still over size budget")
		}

		name := file.Name
		if res.MIME != file.MIME {
			name = renameExt(name, res.MIME)
		}
		return asset.Source{Name: name, MIME: res.MIME, Data: res.Data}, nil

	case file.MIME == sniffer.MIMESVG:
		clean, err := svg.Sanitize(file.Data)
		if err != nil {
			return asset.Source{}, &transcode.DecodeError{MIME: file.MIME, Err: err}
		}
		file.Data = clean
		if file.Ext() != "svg" {
			file.Name = renameExt(file.Name, sniffer.MIMESVG)
		}
		return file, nil

	default:
		return file, nil
	}
}

func (p *Pipeline) observe(provider upload.Provider, started time.Time, err error) {
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusFailed
		p.log.Error().Err(err).Str("provider", string(provider)).Msg("ingest failed")
	}
	metrics.IngestTotal.WithLabelValues(string(provider), status).Inc()
	metrics.IngestDuration.WithLabelValues(string(provider), status).Observe(time.Since(started).Seconds())
}

// resolveMIME settles the asset type. SVG markup is treated as SVG whatever
// the client declared, unless the bytes open with a raster signature.
func resolveMIME(file asset.Source) string {
	mime := sniffer.Resolve(file.MIME, file.Data)
	if mime == sniffer.MIMESVG || !svg.Contains(file.Data) {
		return mime
	}
	if head, err := sniffer.DetectHead(file.Data); err == nil && head.Type != sniffer.TypeSVG {
		return mime
	}
	return sniffer.MIMESVG
}

// renameExt swaps the extension of name for the one matching mime. An empty
// name stays empty so backends fall back to their own naming.
func renameExt(name, mime string) string {
	if name == "" {
		return ""
	}
	base := strings.TrimSuffix(name, path.Ext(name))
	return base + "." + sniffer.Extension(mime)
}
