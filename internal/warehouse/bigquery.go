package warehouse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"PriceLakehouse/internal/logger"
	"PriceLakehouse/internal/model"
)

// BigQuery loads Parquet snapshots from Cloud Storage into a BigQuery table.
type BigQuery struct {
	client  *bigquery.Client
	dataset string
	table   string
}

func NewBigQuery(ctx context.Context, project, dataset, table string, opts ...option.ClientOption) (*BigQuery, error) {
	if err := checkIdent("dataset", dataset); err != nil {
		return nil, err
	}
	if err := checkIdent("table", table); err != nil {
		return nil, err
	}
	client, err := bigquery.NewClient(ctx, project, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	return &BigQuery{client: client, dataset: dataset, table: table}, nil
}

func (b *BigQuery) Close() error { return b.client.Close() }

func bigQueryType(t model.ColumnType) bigquery.FieldType {
	switch t {
	case model.TypeDate:
		return bigquery.DateFieldType
	case model.TypeString:
		return bigquery.StringFieldType
	case model.TypeInt:
		return bigquery.IntegerFieldType
	default:
		return bigquery.FloatFieldType
	}
}

// Schema is the fixed staging table schema, in canonical column order.
func Schema() bigquery.Schema {
	s := make(bigquery.Schema, 0, len(model.Schema))
	for _, f := range model.Schema {
		s = append(s, &bigquery.FieldSchema{
			Name:     f.String(),
			Type:     bigQueryType(f.Type()),
			Required: f == model.FieldDate || f == model.FieldSymbol,
		})
	}
	return s
}

func (b *BigQuery) ensureTable(ctx context.Context) error {
	t := b.client.Dataset(b.dataset).Table(b.table)
	_, err := t.Metadata(ctx)
	if err == nil {
		return nil
	}
	if !isStatus(err, http.StatusNotFound) {
		return fmt.Errorf("table metadata: %w", err)
	}
	err = t.Create(ctx, &bigquery.TableMetadata{Schema: Schema()})
	if err != nil && !isStatus(err, http.StatusConflict) {
		return fmt.Errorf("create table %s.%s: %w", b.dataset, b.table, err)
	}
	logger.Infof("created table %s.%s", b.dataset, b.table)
	return nil
}

// Load appends a gs:// Parquet object and waits for the job to finish.
func (b *BigQuery) Load(ctx context.Context, uri string) error {
	if !strings.HasPrefix(uri, "gs://") {
		return fmt.Errorf("bigquery loads only gs:// uris, got %q", uri)
	}
	if err := b.ensureTable(ctx); err != nil {
		return err
	}

	ref := bigquery.NewGCSReference(uri)
	ref.SourceFormat = bigquery.Parquet
	ref.Schema = Schema()

	loader := b.client.Dataset(b.dataset).Table(b.table).LoaderFrom(ref)
	loader.WriteDisposition = bigquery.WriteAppend
	loader.CreateDisposition = bigquery.CreateIfNeeded

	job, err := loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("start load job: %w", err)
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for load job %s: %w", job.ID(), err)
	}
	if err := status.Err(); err != nil {
		return fmt.Errorf("load job %s: %w", job.ID(), err)
	}

	var rows int64
	if st, ok := status.Statistics.Details.(*bigquery.LoadStatistics); ok {
		rows = st.OutputRows
	}
	logger.Infof("loaded %s into %s.%s (%d rows)", uri, b.dataset, b.table, rows)
	return nil
}

func isStatus(err error, code int) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == code
}
