package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/digkill/BizPlanGen/internal/models"
	"github.com/digkill/BizPlanGen/internal/service"
	"github.com/digkill/BizPlanGen/internal/storage"
)

const maxWebhookBody = 1 << 20

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var message string
	if r.URL.Query().Get("payment") == "failed" {
		message = service.UserMessage(service.ErrInvalidSignature)
	}
	s.renderIndex(w, http.StatusOK, sess, message)
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, sess models.Session, message string) {
	s.render(w, status, indexPageTmpl, indexPage{
		Fields:     fieldViews(service.WithDefaults(sess.Fields)),
		Paid:       sess.Paid,
		SelfReport: s.payments.SelfReportAllowed(),
		HasPlan:    sess.PlanKey != "",
		Message:    message,
	})
}

// fail re-renders the form with the one-line message for err.
func (s *Server) fail(w http.ResponseWriter, sessionID string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed", "session_id", sessionID, "kind", service.ErrorKind(err), "err", err)
	}
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		http.Error(w, service.UserMessage(err), status)
		return
	}
	s.renderIndex(w, status, sess, service.UserMessage(err))
}

// formFields collects the posted plan fields. With strict set, any other key is an error.
func formFields(form url.Values, strict bool) (map[string]string, error) {
	known := make(map[string]bool, len(service.FieldNames))
	for _, name := range service.FieldNames {
		known[name] = true
	}
	fields := make(map[string]string)
	for key, values := range form {
		if !known[key] {
			if strict {
				return nil, service.ErrUnknownField
			}
			continue
		}
		if len(values) > 0 {
			fields[key] = values[0]
		}
	}
	return fields, nil
}

func (s *Server) applyForm(r *http.Request, sessionID string, strict bool) error {
	if err := r.ParseForm(); err != nil {
		return errors.Join(service.ErrUnknownField, err)
	}
	fields, err := formFields(r.PostForm, strict)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	_, err = s.forms.UpdateFields(sessionID, fields)
	return err
}

func (s *Server) handleUpdateFields(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.applyForm(r, sess.ID, true); err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.applyForm(r, sess.ID, false); err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	checkout, err := s.payments.CreateOrder(r.Context(), sess.ID)
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	s.render(w, http.StatusOK, checkoutPageTmpl, checkoutPage{Form: checkout})
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.payments.ConfirmManual(sess.ID); err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// handlePaymentCallback receives the hosted checkout redirect. The session cookie may not
// survive the cross-site POST, so the verified order decides which session is resumed.
func (s *Server) handlePaymentCallback(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	cb := service.CheckoutCallback{
		OrderID:   r.PostForm.Get("razorpay_order_id"),
		PaymentID: r.PostForm.Get("razorpay_payment_id"),
		Signature: r.PostForm.Get("razorpay_signature"),
	}
	sessionID, err := s.payments.ConfirmCheckout(r.Context(), cb)
	if err != nil {
		s.log.Warn("checkout callback rejected", "order_id", cb.OrderID, "err", err)
		http.Redirect(w, r, "/?payment=failed", http.StatusSeeOther)
		return
	}
	if _, ok := s.sessions.Get(sessionID); ok {
		s.setSessionCookie(w, sessionID)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRazorpayWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	err = s.payments.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	switch {
	case err == nil:
	case errors.Is(err, service.ErrOrderNotFound):
		s.log.Warn("razorpay webhook for unknown order", "err", err)
	default:
		s.log.Error("razorpay webhook", "err", err)
		http.Error(w, service.UserMessage(err), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := s.applyForm(r, sess.ID, false); err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	job, err := s.generator.Start(sess.ID)
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	http.Redirect(w, r, "/generate/"+job.ID, http.StatusSeeOther)
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	job, err := s.generator.Status(sess.ID, chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		s.writeJSON(w, http.StatusOK, job)
		return
	}

	page := jobPage{Job: job, Done: job.State.Done()}
	if job.State == models.JobSucceeded {
		plan, err := s.readPlan(r, sess.ID)
		if err != nil {
			s.fail(w, sess.ID, err)
			return
		}
		page.Plan = plan
	}
	s.render(w, http.StatusOK, jobPageTmpl, page)
}

func (s *Server) readPlan(r *http.Request, sessionID string) (string, error) {
	rc, err := s.generator.OpenPlan(r.Context(), sessionID)
	if err != nil {
		return "", err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	jobID := chi.URLParam(r, "id")
	if err := s.generator.Cancel(sess.ID, jobID); err != nil {
		s.fail(w, sess.ID, err)
		return
	}
	http.Redirect(w, r, "/generate/"+jobID, http.StatusSeeOther)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	rc, err := s.generator.OpenPlan(r.Context(), sess.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "no plan generated yet", http.StatusNotFound)
			return
		}
		s.log.Error("open plan", "session_id", sess.ID, "err", err)
		http.Error(w, service.UserMessage(err), statusFor(err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+storage.FileName+`"`)
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Error("stream plan", "session_id", sess.ID, "err", err)
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	orders, err := s.payments.ListOrders(r.Context(), limit)
	if err != nil {
		s.log.Error("list orders", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, orders)
}
