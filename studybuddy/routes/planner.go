package routes

import (
	"fmt"
	"net/http"

	"studybuddy/studybuddy/controllers"
	"studybuddy/studybuddy/middlewares"
	"studybuddy/studybuddy/services/session"
	"studybuddy/studybuddy/types"
	apitypes "studybuddy/studybuddy/utils/types"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func PlannerRoutes(ctrl *controllers.PlannerController, mgr *session.Manager) chi.Router {
	r := chi.NewRouter()
	r.Use(middlewares.AuthMiddleware(mgr))

	r.Post("/tasks", handleJSON(func(r *http.Request) (any, int, error) {
		var req apitypes.AddTaskRequest
		if err := decode(r, &req); err != nil {
			return nil, 0, err
		}
		res, err := ctrl.AddTask(r.Context(), currentSession(r).Username, req)
		if err != nil {
			return nil, 0, err
		}
		return res, http.StatusCreated, nil
	}))

	r.Get("/tasks", handleJSON(func(r *http.Request) (any, int, error) {
		tasks, err := ctrl.ListTasks(r.Context(), currentSession(r).Username, r.URL.Query().Get("date"))
		if err != nil {
			return nil, 0, err
		}
		return tasks, http.StatusOK, nil
	}))

	r.Patch("/tasks/{id}", handleJSON(func(r *http.Request) (any, int, error) {
		id, err := taskID(r)
		if err != nil {
			return nil, 0, err
		}
		var req apitypes.SetDoneRequest
		if err := decode(r, &req); err != nil {
			return nil, 0, err
		}
		if req.Done == nil {
			return nil, 0, fmt.Errorf("%w: done is required", types.ErrInvalidInput)
		}
		task, err := ctrl.SetDone(r.Context(), currentSession(r).Username, id, *req.Done)
		if err != nil {
			return nil, 0, err
		}
		return task, http.StatusOK, nil
	}))

	r.Delete("/tasks/{id}", handleJSON(func(r *http.Request) (any, int, error) {
		id, err := taskID(r)
		if err != nil {
			return nil, 0, err
		}
		if err := ctrl.DeleteTask(r.Context(), currentSession(r).Username, id); err != nil {
			return nil, 0, err
		}
		return nil, http.StatusNoContent, nil
	}))

	r.Get("/breakdown", handleJSON(func(r *http.Request) (any, int, error) {
		b, err := ctrl.Breakdown(r.Context(), currentSession(r).Username, r.URL.Query().Get("date"))
		if err != nil {
			return nil, 0, err
		}
		return b, http.StatusOK, nil
	}))
	return r
}

func taskID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: bad task id", types.ErrInvalidInput)
	}
	return id, nil
}
