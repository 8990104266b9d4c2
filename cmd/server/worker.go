package main

import (
	"context"

	"github.com/hibiken/asynq"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/wildmind/studio-api/internal/service"
	"github.com/wildmind/studio-api/internal/worker"
)

var workerConcurrency int

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued project and video jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := newApp(context.Background(), cfg)
		defer a.Close()

		log.Infof("Worker starting with concurrency %d", workerConcurrency)
		return newWorkerServer(a).Run(newWorkerMux(a))
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
	workerCmd.Flags().IntVar(&workerConcurrency, "concurrency", 10, "Number of jobs processed at once")
}

func newWorkerServer(a *app) *asynq.Server {
	concurrency := workerConcurrency
	if concurrency <= 0 {
		concurrency = 10
	}
	return asynq.NewServer(redisOpt(a.cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			service.QueueProjects: 6,
			service.QueueVideos:   4,
		},
		Logger:   log.WithField("component", "asynq"),
		LogLevel: asynqLogLevel(a.cfg.Server.LogLevel),
	})
}

func newWorkerMux(a *app) *asynq.ServeMux {
	projectWorker := worker.NewProjectWorker(a.jobs, a.runner, a.hub)
	videoWorker := worker.NewVideoWorker(a.jobs, a.videos, a.hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeProject, projectWorker.ProcessTask)
	mux.HandleFunc(service.TaskTypeVideo, videoWorker.ProcessTask)
	return mux
}
