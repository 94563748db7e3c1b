package httpserver

import (
	"net/http"
	"time"

	"github.com/guido-cesarano/distributedq/internal/codec"
	"github.com/guido-cesarano/distributedq/internal/manager"
)

// pushRequest is the wire shape of a POST /push body, carrying both
// json and msgpack tags so the same struct decodes either encoding.
// Fields mirror Manager.Push's parameters, per spec.md §6.
type pushRequest struct {
	Queue      string                 `json:"queue" msgpack:"queue"`
	Name       string                 `json:"name" msgpack:"name"`
	Args       []interface{}          `json:"args" msgpack:"args"`
	Kwargs     map[string]interface{} `json:"kwargs" msgpack:"kwargs"`
	Meta       map[string]interface{} `json:"meta" msgpack:"meta"`
	TTL        *int64                 `json:"ttl" msgpack:"ttl"`
	Delay      *int64                 `json:"delay" msgpack:"delay"`
	Dead       *string                `json:"dead" msgpack:"dead"`
	Retry      interface{}            `json:"retry" msgpack:"retry"`
	RetryDelay *int64                 `json:"retry_delay" msgpack:"retry_delay"`
	Timeout    *int64                 `json:"timeout" msgpack:"timeout"`
	KeepResult *int64                 `json:"keep_result" msgpack:"keep_result"`
}

func secondsPtr(v *int64) *time.Duration {
	if v == nil {
		return nil
	}
	d := time.Duration(*v) * time.Second
	return &d
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if status, apiErr := decodeBody(r, &req); apiErr != nil {
		writeResult(w, r, status, *apiErr)
		return
	}

	if req.Queue == "" {
		writeResult(w, r, http.StatusBadRequest, apiError{Error: "bad-params", Message: "queue required"})
		return
	}
	if req.Name == "" {
		writeResult(w, r, http.StatusBadRequest, apiError{Error: "bad-params", Message: "name required"})
		return
	}

	result, err := s.manager.Push(r.Context(), manager.PushOptions{
		Queue:      req.Queue,
		Name:       req.Name,
		Args:       req.Args,
		Kwargs:     req.Kwargs,
		Meta:       req.Meta,
		TTL:        secondsPtr(req.TTL),
		Delay:      secondsPtr(req.Delay),
		Dead:       req.Dead,
		Retry:      codec.RetryFromWire(req.Retry),
		RetryDelay: secondsPtr(req.RetryDelay),
		Timeout:    secondsPtr(req.Timeout),
		KeepResult: secondsPtr(req.KeepResult),
	})
	if err != nil {
		s.log.Error().Err(err).Msg("push failed")
		writeResult(w, r, http.StatusInternalServerError, apiError{Error: "internal-error", Message: err.Error()})
		return
	}

	writeResult(w, r, http.StatusOK, map[string]string{"id": result.ID()})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		writeResult(w, r, http.StatusBadRequest, apiError{Error: "bad-params", Message: "id required"})
		return
	}

	rec, found, err := s.manager.FetchResult(r.Context(), id)
	if err != nil {
		s.log.Error().Err(err).Str("id", id).Msg("fetch result failed")
		writeResult(w, r, http.StatusInternalServerError, apiError{Error: "internal-error", Message: err.Error()})
		return
	}
	if !found {
		writeResult(w, r, http.StatusOK, nil)
		return
	}
	writeResult(w, r, http.StatusOK, rec)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stat, err := s.queues.Stat(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stat failed")
		writeResult(w, r, http.StatusInternalServerError, apiError{Error: "internal-error", Message: err.Error()})
		return
	}
	writeResult(w, r, http.StatusOK, map[string]interface{}{
		"schedule_count": stat.ScheduleCount,
		"queues":         stat.QueueDepths,
	})
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	queue := r.URL.Query().Get("queue")
	if queue == "" {
		writeResult(w, r, http.StatusBadRequest, apiError{Error: "bad-params", Message: "queue required"})
		return
	}

	items, err := s.queues.GetQueue(r.Context(), queue, 0, 50)
	if err != nil {
		s.log.Error().Err(err).Str("queue", queue).Msg("inspect queue failed")
		writeResult(w, r, http.StatusInternalServerError, apiError{Error: "internal-error", Message: err.Error()})
		return
	}

	decoded := make([]*codec.Envelope, 0, len(items))
	for _, body := range items {
		env, err := codec.Decode(body)
		if err != nil {
			continue
		}
		decoded = append(decoded, env)
	}
	writeResult(w, r, http.StatusOK, decoded)
}
