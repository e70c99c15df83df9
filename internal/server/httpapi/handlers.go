package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fleetops/contractd/internal/common"
)

// contractErrorMessages holds the localized per-operation messages for
// forbidden and unexpected failures.
type contractErrorMessages struct {
	forbidden string
	internal  string
}

var (
	listMessages   = contractErrorMessages{forbidden: "无权限执行该操作", internal: "获取合同列表失败"}
	createMessages = contractErrorMessages{forbidden: "无权限执行该操作", internal: "创建合同失败"}
	updateMessages = contractErrorMessages{forbidden: "无权修改该合同", internal: "更新合同失败"}
	deleteMessages = contractErrorMessages{forbidden: "无权删除该合同", internal: "删除合同失败"}
	getMessages    = contractErrorMessages{forbidden: "无权查看该合同", internal: "获取合同失败"}
)

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UnixMilli(),
	})
}

func (rt *Router) listContracts(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	records, err := rt.contracts.List(r.Context(), user)
	if err != nil {
		rt.writeContractError(r, w, err, listMessages)
		return
	}

	contracts := make([]*contractPayload, 0, len(records))
	for _, c := range records {
		contracts = append(contracts, toContractPayload(c))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"contracts": contracts,
		"role":      user.Role,
	})
}

func (rt *Router) createContract(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var payload contractInputPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "无效的请求数据")
		return
	}

	result, err := rt.contracts.Create(r.Context(), user, payload.toInput())
	if err != nil {
		rt.writeContractError(r, w, err, createMessages)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{"contract": toContractPayload(result)})
}

func (rt *Router) updateContract(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var payload contractInputPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "无效的请求数据")
		return
	}

	result, err := rt.contracts.Update(r.Context(), user, chi.URLParam(r, "id"), payload.toInput())
	if err != nil {
		rt.writeContractError(r, w, err, updateMessages)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"contract": toContractPayload(result)})
}

func (rt *Router) deleteContract(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := rt.contracts.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		rt.writeContractError(r, w, err, deleteMessages)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "删除成功"})
}

func (rt *Router) getContract(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	result, err := rt.contracts.Get(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		rt.writeContractError(r, w, err, getMessages)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"contract": toContractPayload(result)})
}

// writeContractError maps service errors to HTTP statuses with localized
// messages. Internal detail never reaches the response body.
func (rt *Router) writeContractError(r *http.Request, w http.ResponseWriter, err error, msgs contractErrorMessages) {
	var verr *common.ValidationError

	switch {
	case errors.Is(err, common.ErrorNotFound):
		writeError(w, http.StatusNotFound, "合同不存在")
	// role-level rejection comes before any ownership check and gets the
	// generic message; only ownership denial names the operation
	case errors.Is(err, common.ErrorRoleDenied):
		writeError(w, http.StatusForbidden, "无权限执行该操作")
	case errors.Is(err, common.ErrorForbidden):
		writeError(w, http.StatusForbidden, msgs.forbidden)
	case errors.Is(err, common.ErrorUnauthenticated):
		writeError(w, http.StatusUnauthorized, "未登录")
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, fmt.Sprintf("%s 为必填项", verr.Field))
	default:
		rt.logger.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeError(w, http.StatusInternalServerError, msgs.internal)
	}
}
