// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cloud provides the optional Google Cloud integrations of a run.
// This file initializes and holds the client objects. Only the clients a run
// actually needs are created, so a purely local run never touches
// credentials.
//
// Structs:
//   - ServiceClients: container for the Storage and BigQuery clients.
//
// Functions:
//   - NewCloudServiceClients: creates the clients requested by ClientNeeds.
//   - Close: releases every client that was created.
package cloud

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/storage"
	"github.com/jaycherian/gcp-go-audio-quality/internal/config"
	"google.golang.org/api/option"
)

// ClientNeeds selects which clients NewCloudServiceClients creates.
type ClientNeeds struct {
	Storage  bool
	BigQuery bool
}

// Any reports whether at least one client is requested.
func (n ClientNeeds) Any() bool {
	return n.Storage || n.BigQuery
}

// ServiceClients holds the Google Cloud clients used by a run. Unrequested
// clients are nil.
type ServiceClients struct {
	StorageClient  *storage.Client
	BigQueryClient *bigquery.Client
}

// Close releases all created clients.
func (c *ServiceClients) Close() error {
	var errs []error
	if c.StorageClient != nil {
		errs = append(errs, c.StorageClient.Close())
	}
	if c.BigQueryClient != nil {
		errs = append(errs, c.BigQueryClient.Close())
	}
	return errors.Join(errs...)
}

// ClientOptions returns the client options derived from the cloud configuration.
func ClientOptions(cfg config.Cloud) []option.ClientOption {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return opts
}

// NewCloudServiceClients creates the clients selected by needs.
//
// Inputs:
//   - ctx: context governing the client lifetimes.
//   - cfg: the loaded application configuration.
//   - needs: which clients to create.
//
// Outputs:
//   - *ServiceClients: the initialized clients.
//   - error: the first client creation failure.
func NewCloudServiceClients(ctx context.Context, cfg *config.Config, needs ClientNeeds) (*ServiceClients, error) {
	opts := ClientOptions(cfg.Cloud)
	clients := &ServiceClients{}

	if needs.Storage {
		sc, err := storage.NewClient(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("storage client: %w", err)
		}
		clients.StorageClient = sc
	}

	if needs.BigQuery {
		if cfg.Cloud.GoogleProjectId == "" {
			_ = clients.Close()
			return nil, errors.New("bigquery client: cloud.google_project_id is not set")
		}
		bc, err := bigquery.NewClient(ctx, cfg.Cloud.GoogleProjectId, opts...)
		if err != nil {
			_ = clients.Close()
			return nil, fmt.Errorf("bigquery client: %w", err)
		}
		clients.BigQueryClient = bc
	}

	slog.Debug("cloud clients ready", "storage", needs.Storage, "bigquery", needs.BigQuery)
	return clients, nil
}
