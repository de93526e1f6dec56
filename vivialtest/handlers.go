package vivialtest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/s0up4200/vivialconnect/inflect"
)

// validators reject creates the real service answers with 422
var validators = map[string]func(attrs map[string]any) (string, string){
	"messages": func(attrs map[string]any) (string, string) {
		if s, _ := attrs["to_number"].(string); s == "" {
			return "to_number", "to_number is required"
		}
		return "", ""
	},
	"configurations": func(attrs map[string]any) (string, string) {
		if s, _ := attrs["name"].(string); s == "" {
			return "name", "name is required"
		}
		return "", ""
	},
	"connectors": func(attrs map[string]any) (string, string) {
		if s, _ := attrs["name"].(string); s == "" {
			return "name", "name is required"
		}
		return "", ""
	},
}

func (s *Server) handleList(plural string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		items := s.collection(plural).list(nil)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{plural: limitItems(r, items)})
	}
}

func (s *Server) handleCount(plural string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		n := len(s.collection(plural).order)
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"count": n})
	}
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.getElement(w, "accounts", chi.URLParam(r, "accountID"))
}

func (s *Server) handleUpdateAccount(w http.ResponseWriter, r *http.Request) {
	s.updateElement(w, r, "accounts", chi.URLParam(r, "accountID"))
}

func (s *Server) handleBillingStatus(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	s.mu.Lock()
	_, ok := s.collection("accounts").get(accountID)
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	id, _ := strconv.Atoi(accountID)
	writeJSON(w, http.StatusOK, map[string]any{
		"account_id":  id,
		"free_trial":  false,
		"balance":     25.5,
		"currency":    "USD",
		"status_code": "active",
	})
}

func (s *Server) handleGenericList(w http.ResponseWriter, r *http.Request) {
	plural := chi.URLParam(r, "plural")
	match := func(map[string]any) bool { return true }

	if plural == "transactions" {
		if types := r.URL.Query()["include_types[]"]; len(types) > 0 {
			match = func(item map[string]any) bool {
				t, _ := item["transaction_type"].(string)
				for _, want := range types {
					if strings.HasPrefix(t, want) {
						return true
					}
				}
				return false
			}
		}
	}

	s.mu.Lock()
	items := s.collection(plural).list(match)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{plural: limitItems(r, items)})
}

func (s *Server) handleGenericCount(w http.ResponseWriter, r *http.Request) {
	s.handleCount(chi.URLParam(r, "plural"))(w, r)
}

func (s *Server) handleGenericGet(w http.ResponseWriter, r *http.Request) {
	s.getElement(w, chi.URLParam(r, "plural"), chi.URLParam(r, "id"))
}

func (s *Server) handleGenericCreate(w http.ResponseWriter, r *http.Request) {
	plural := chi.URLParam(r, "plural")
	singular := inflect.Singularize(plural)

	attrs, err := decodeRoot(r, singular)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	delete(attrs, "id")

	if validate, ok := validators[plural]; ok {
		if param, msg := validate(attrs); msg != "" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error": map[string]any{"message": msg, "param": param},
			})
			return
		}
	}

	s.mu.Lock()
	switch plural {
	case "messages":
		s.prepareMessage(attrs)
	case "phone_numbers":
		if msg := s.preparePurchase(attrs); msg != "" {
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, msg)
			return
		}
	}
	attrs["account_id"] = s.accountIDValue()
	id := s.insert(plural, attrs)
	item, _ := s.collection(plural).get(strconv.Itoa(id))
	out := copyAttrs(item)
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{singular: out})
}

func (s *Server) handleGenericUpdate(w http.ResponseWriter, r *http.Request) {
	s.updateElement(w, r, chi.URLParam(r, "plural"), chi.URLParam(r, "id"))
}

func (s *Server) handleGenericDelete(w http.ResponseWriter, r *http.Request) {
	plural := chi.URLParam(r, "plural")
	s.mu.Lock()
	ok := s.collection(plural).remove(chi.URLParam(r, "id"))
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, inflect.Singularize(plural)+" not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getElement(w http.ResponseWriter, plural, id string) {
	singular := inflect.Singularize(plural)
	s.mu.Lock()
	item, ok := s.collection(plural).get(id)
	var out map[string]any
	if ok {
		out = copyAttrs(item)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, singular+" not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{singular: out})
}

func (s *Server) updateElement(w http.ResponseWriter, r *http.Request, plural, id string) {
	singular := inflect.Singularize(plural)
	attrs, err := decodeRoot(r, singular)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(plural)
	item, ok := c.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, singular+" not found")
		return
	}
	for _, k := range sortedKeys(attrs) {
		if k == "id" || k == "date_created" {
			continue
		}
		item[k] = attrs[k]
	}
	item["date_modified"] = s.now().Format("2006-01-02T15:04:05")
	c.put(id, item)
	writeJSON(w, http.StatusOK, map[string]any{singular: copyAttrs(item)})
}

// prepareMessage fills in the fields the service assigns on send
func (s *Server) prepareMessage(attrs map[string]any) {
	media, _ := attrs["media_urls"].([]any)
	attrs["num_media"] = len(media)
	attrs["status"] = "accepted"
	attrs["direction"] = "outbound-api"
	if _, ok := attrs["message_type"]; !ok {
		if len(media) > 0 {
			attrs["message_type"] = "local_mms"
		} else {
			attrs["message_type"] = "local_sms"
		}
	}
}

// preparePurchase resolves a number purchase by phone number or area code
func (s *Server) preparePurchase(attrs map[string]any) string {
	phone, _ := attrs["phone_number"].(string)
	area, _ := attrs["area_code"].(string)
	if phone == "" && area == "" {
		return "phone_number or area_code is required"
	}
	for i, candidate := range s.numberPool {
		if (phone != "" && candidate["phone_number"] == phone) ||
			(phone == "" && candidate["area_code"] == area) {
			for k, v := range candidate {
				if _, set := attrs[k]; !set {
					attrs[k] = v
				}
			}
			s.numberPool = append(s.numberPool[:i], s.numberPool[i+1:]...)
			break
		}
	}
	if _, ok := attrs["phone_number"]; !ok {
		return "no number available in area code " + area
	}
	if _, ok := attrs["phone_number_type"]; !ok {
		attrs["phone_number_type"] = "local"
	}
	if _, ok := attrs["tags"]; !ok {
		attrs["tags"] = map[string]any{}
	}
	return ""
}

func limitItems(r *http.Request, items []any) []any {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit <= 0 || limit >= len(items) {
		return items
	}
	return items[:limit]
}
