package api

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"stealthcompany.com/clinicportal/internal/fhir"
)

// getResourceHandler returns one stored resource in its flat FHIR form
func (s *Server) getResourceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	res, err := s.store.Get(r.Context(), vars["type"], vars["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// createResourceHandler stores a new resource of the type named in the path.
// The store assigns the id when the body carries none.
func (s *Server) createResourceHandler(w http.ResponseWriter, r *http.Request) {
	resourceType := mux.Vars(r)["type"]

	var res fhir.Resource
	if err := decodeBody(r, &res); err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.ResourceType != "" && res.ResourceType != resourceType {
		s.writeError(w, r, &badRequest{
			msg: fmt.Sprintf("body resourceType %q does not match path type %q", res.ResourceType, resourceType),
		})
		return
	}
	res.ResourceType = resourceType

	created, err := s.store.Create(r.Context(), res)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/fhir/"+created.Ref())
	writeJSON(w, http.StatusCreated, created)
}

// updateResourceHandler replaces the payload of an existing resource
func (s *Server) updateResourceHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var payload map[string]any
	if err := decodeBody(r, &payload); err != nil {
		s.writeError(w, r, err)
		return
	}
	if payload == nil {
		s.writeError(w, r, &badRequest{msg: "payload must be a JSON object"})
		return
	}

	updated, err := s.store.Update(r.Context(), vars["type"], vars["id"], payload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
