package admin

import (
	"net/url"
	"strings"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
)

type authzRolePayload struct {
	Role string `json:"role" binding:"required"`
}

type authzPolicyPayload struct {
	Role   string `json:"role" binding:"required"`
	Object string `json:"object" binding:"required"`
	Action string `json:"action" binding:"required"`
}

// SetAuthzRolesRequest 授予额外角色请求（覆盖）
type SetAuthzRolesRequest struct {
	Roles []string `json:"roles"`
}

// GetAuthzMe 当前操作人的权限快照
func (h *Handler) GetAuthzMe(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	accountRole := c.GetString(constants.ContextKeyUserRole)
	roles, err := h.AuthzService.GetUserRoles(op.UserID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	policies, err := h.AuthzService.GetUserPolicies(op.UserID, accountRole)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"uid":      op.UID,
		"role":     accountRole,
		"granted":  roles,
		"policies": policies,
	})
}

// ListAuthzRoles 列出授权角色
func (h *Handler) ListAuthzRoles(c *gin.Context) {
	roles, err := h.AuthzService.ListRoles()
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, roles)
}

// CreateAuthzRole 创建自定义角色
func (h *Handler) CreateAuthzRole(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	var req authzRolePayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	role, err := h.AuthzService.EnsureRole(req.Role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_role", err)
		return
	}
	h.ModerationService.RecordAuthz(op, role, service.ModerationActionRoleCreate, models.JSON{"role": role})
	requestLog(c).Infow("admin_authz_role_created", "operator_id", op.UserID, "role", role)
	response.Success(c, gin.H{"role": role})
}

// DeleteAuthzRole 删除自定义角色（预置角色不可删除）
func (h *Handler) DeleteAuthzRole(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.invalid_role", nil)
		return
	}
	if err := h.AuthzService.DeleteRole(role); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_role", err)
		return
	}
	h.ModerationService.RecordAuthz(op, role, service.ModerationActionRoleDelete, models.JSON{"role": role})
	requestLog(c).Infow("admin_authz_role_deleted", "operator_id", op.UserID, "role", role)
	response.Success(c, nil)
}

// GetAuthzRolePolicies 获取角色策略
func (h *Handler) GetAuthzRolePolicies(c *gin.Context) {
	role := decodeRoleParam(c.Param("role"))
	if role == "" {
		respondError(c, response.CodeBadRequest, "error.invalid_role", nil)
		return
	}
	policies, err := h.AuthzService.GetRolePolicies(role)
	if err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_role", err)
		return
	}
	response.Success(c, policies)
}

// GrantAuthzPolicy 授予角色策略
func (h *Handler) GrantAuthzPolicy(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.GrantRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	h.ModerationService.RecordAuthz(op, req.Role, service.ModerationActionPolicyGrant, policyDetail(req))
	requestLog(c).Infow("admin_authz_policy_granted", "operator_id", op.UserID, "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, nil)
}

// RevokeAuthzPolicy 撤销角色策略
func (h *Handler) RevokeAuthzPolicy(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	var req authzPolicyPayload
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if err := h.AuthzService.RevokeRolePolicy(req.Role, req.Object, req.Action); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", err)
		return
	}
	h.ModerationService.RecordAuthz(op, req.Role, service.ModerationActionPolicyRevoke, policyDetail(req))
	requestLog(c).Infow("admin_authz_policy_revoked", "operator_id", op.UserID, "role", req.Role, "object", req.Object, "action", req.Action)
	response.Success(c, nil)
}

// GetUserPermissions 查询用户生效的管理权限
func (h *Handler) GetUserPermissions(c *gin.Context) {
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	user, err := h.UserRepo.GetByUID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	roles, err := h.AuthzService.GetUserRoles(user.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	policies, err := h.AuthzService.GetUserPolicies(user.ID, string(user.Role))
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	response.Success(c, gin.H{
		"uid":      user.UID,
		"role":     user.Role,
		"granted":  roles,
		"policies": policies,
	})
}

// SetUserAuthzRoles 覆盖设置用户额外授予的角色
func (h *Handler) SetUserAuthzRoles(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	var req SetAuthzRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	user, err := h.UserRepo.GetByUID(uid)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	if user == nil {
		respondError(c, response.CodeNotFound, "error.user_not_found", nil)
		return
	}
	if err := h.AuthzService.SetUserRoles(user.ID, req.Roles); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_role", err)
		return
	}
	roles, err := h.AuthzService.GetUserRoles(user.ID)
	if err != nil {
		respondError(c, response.CodeInternal, "error.internal", err)
		return
	}
	h.ModerationService.RecordAuthz(op, user.UID, service.ModerationActionUserGrant, models.JSON{"roles": roles})
	requestLog(c).Infow("admin_authz_roles_updated", "operator_id", op.UserID, "target_uid", user.UID, "roles", roles)
	response.Success(c, roles)
}

func policyDetail(req authzPolicyPayload) models.JSON {
	return models.JSON{
		"role":   req.Role,
		"object": req.Object,
		"method": strings.ToUpper(strings.TrimSpace(req.Action)),
	}
}

func decodeRoleParam(value string) string {
	decoded, err := url.QueryUnescape(value)
	if err != nil {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(decoded)
}
