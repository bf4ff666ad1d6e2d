package controller

import (
	"splitbill_backend/internal/model"
	"splitbill_backend/internal/service"
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GroupController struct {
	GroupService *service.GroupService
}

func NewGroupController(groupService *service.GroupService) *GroupController {
	return &GroupController{GroupService: groupService}
}

// CreateGroupRequest 创建群组请求
type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required,max=100" example:"周末旅行"`
	Description string `json:"description" binding:"max=500"`
	Currency    string `json:"currency" binding:"omitempty,len=3" example:"USD"`
	MemberIDs   []uint `json:"memberIds" swaggertype:"array,number" example:"2,3"`
}

// CreateGroup godoc
// @Summary 创建群组
// @Description 创建者自动成为管理员，初始成员必须是创建者的好友
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body CreateGroupRequest true "群组信息"
// @Success 201 {object} util.Response{data=model.Group} "成功"
// @Failure 400 {object} util.Response "参数错误"
// @Failure 403 {object} util.Response "成员不是好友"
// @Router /api/groups [post]
func (c *GroupController) CreateGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req CreateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.GroupService.Create(ctx.Request.Context(), userID, service.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		MemberIDs:   req.MemberIDs,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, group)
}

// ListGroups godoc
// @Summary 我的群组
// @Tags 群组
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.GroupSummary} "成功"
// @Router /api/groups [get]
func (c *GroupController) ListGroups(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groups, err := c.GroupService.List(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, groups)
}

// GetGroup godoc
// @Summary 群组详情
// @Tags 群组
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Success 200 {object} util.Response{data=model.Group} "成功"
// @Failure 403 {object} util.Response "非群组成员"
// @Failure 404 {object} util.Response "群组不存在"
// @Router /api/groups/{id} [get]
func (c *GroupController) GetGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	group, err := c.GroupService.Get(ctx.Request.Context(), groupID, userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, group)
}

// UpdateGroupRequest 省略的字段保持不变
type UpdateGroupRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description" binding:"omitempty,max=500"`
	Currency    *string `json:"currency" binding:"omitempty,len=3"`
}

// UpdateSettings godoc
// @Summary 修改群组设置
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Param   request body UpdateGroupRequest true "群组设置"
// @Success 200 {object} util.Response{data=model.Group} "成功"
// @Failure 403 {object} util.Response "需要管理员权限"
// @Router /api/groups/{id}/settings [put]
func (c *GroupController) UpdateSettings(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	var req UpdateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	group, err := c.GroupService.UpdateSettings(ctx.Request.Context(), groupID, userID, service.UpdateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
	})
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, group)
}

// DeleteGroup godoc
// @Summary 删除群组
// @Description 删除群组、成员与邀请，已有账单和收款请求保留但解除群组关联
// @Tags 群组
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "需要管理员权限"
// @Router /api/groups/{id}/settings [delete]
func (c *GroupController) DeleteGroup(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	if err := c.GroupService.Delete(ctx.Request.Context(), groupID, userID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type CreateInvitationRequest struct {
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateInvitation godoc
// @Summary 生成邀请链接
// @Description 生成 7 天内有效的一次性邀请令牌
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Param   request body CreateInvitationRequest false "被邀请人邮箱（可选）"
// @Success 201 {object} util.Response{data=model.GroupInvitation} "成功"
// @Failure 403 {object} util.Response "需要管理员权限"
// @Router /api/groups/{id}/invitations [post]
func (c *GroupController) CreateInvitation(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	var req CreateInvitationRequest
	// 请求体可以为空
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			util.BadRequest(ctx, err.Error())
			return
		}
	}

	inv, err := c.GroupService.CreateInvitation(ctx.Request.Context(), groupID, userID, req.Email)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, inv)
}

// PreviewInvitation godoc
// @Summary 查看邀请
// @Description 无需登录，返回群组预览与邀请是否仍然有效；携带 token 时同时返回是否已是成员
// @Tags 群组
// @Produce  json
// @Param   token path string true "邀请令牌"
// @Success 200 {object} util.Response{data=service.InvitationPreview} "成功"
// @Failure 404 {object} util.Response "邀请不存在"
// @Router /api/invitations/{token} [get]
func (c *GroupController) PreviewInvitation(ctx *gin.Context) {
	var viewerID uint
	if claims := util.GetUserFromContext(ctx); claims != nil {
		viewerID = claims.UserID
	}
	preview, err := c.GroupService.PreviewInvitation(ctx.Request.Context(), ctx.Param("token"), viewerID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, preview)
}

// AcceptInvitation godoc
// @Summary 接受邀请
// @Tags 群组
// @Produce  json
// @Security ApiKeyAuth
// @Param   token path string true "邀请令牌"
// @Success 200 {object} util.Response{data=object} "成功，返回群组ID"
// @Failure 404 {object} util.Response "邀请不存在"
// @Failure 409 {object} util.Response "邀请已使用或已是成员"
// @Failure 410 {object} util.Response "邀请已过期"
// @Router /api/invitations/{token}/accept [post]
func (c *GroupController) AcceptInvitation(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	groupID, err := c.GroupService.AcceptInvitation(ctx.Request.Context(), ctx.Param("token"), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"groupId": groupID})
}

// RemoveMember godoc
// @Summary 移除成员或退出群组
// @Description 管理员可移除成员；普通成员只能移除自己。仍有其他成员时最后一名管理员不能退出
// @Tags 群组
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Param   userId path uint true "成员用户ID"
// @Success 200 {object} util.Response "成功"
// @Failure 409 {object} util.Response "最后一名管理员"
// @Router /api/groups/{id}/members/{userId} [delete]
func (c *GroupController) RemoveMember(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	targetID, ok := util.ParamUint(ctx, "userId")
	if !ok {
		return
	}

	if err := c.GroupService.RemoveMember(ctx.Request.Context(), groupID, userID, targetID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=admin member" enums:"admin,member"`
}

// UpdateMemberRole godoc
// @Summary 修改成员角色
// @Tags 群组
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "群组ID"
// @Param   userId path uint true "成员用户ID"
// @Param   request body UpdateMemberRoleRequest true "角色"
// @Success 200 {object} util.Response "成功"
// @Failure 403 {object} util.Response "需要管理员权限"
// @Router /api/groups/{id}/members/{userId}/role [put]
func (c *GroupController) UpdateMemberRole(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	groupID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}
	targetID, ok := util.ParamUint(ctx, "userId")
	if !ok {
		return
	}
	var req UpdateMemberRoleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.GroupService.UpdateMemberRole(ctx.Request.Context(), groupID, userID, targetID, model.GroupRole(req.Role)); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"role": req.Role})
}
