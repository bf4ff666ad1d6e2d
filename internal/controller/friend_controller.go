package controller

import (
	"splitbill_backend/internal/service"
	"splitbill_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// FriendController 好友关系相关接口
type FriendController struct {
	FriendshipService *service.FriendshipService
}

func NewFriendController(friendshipService *service.FriendshipService) *FriendController {
	return &FriendController{FriendshipService: friendshipService}
}

// AddFriendRequest 按邮箱或用户 ID 添加好友，二选一
type AddFriendRequest struct {
	Email  string `json:"email" binding:"omitempty,email" example:"alice@example.com"`
	UserID uint   `json:"userId" example:"2"`
}

// AddFriend godoc
// @Summary 添加好友
// @Description 发送好友申请；若对方已向我发出申请则直接成为好友
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body AddFriendRequest true "对方邮箱或用户ID"
// @Success 201 {object} util.Response{data=object} "成功，返回当前关系"
// @Failure 400 {object} util.Response "不能添加自己"
// @Failure 404 {object} util.Response "用户不存在"
// @Failure 409 {object} util.Response "已是好友或申请已存在"
// @Router /api/friends/add [post]
func (c *FriendController) AddFriend(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req AddFriendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	if req.Email == "" && req.UserID == 0 {
		util.BadRequest(ctx, "email or userId is required")
		return
	}

	relation, err := c.FriendshipService.AddFriend(ctx.Request.Context(), userID, req.Email, req.UserID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"relation": relation})
}

// RespondFriendRequest 处理好友申请请求
type RespondFriendRequest struct {
	UserID uint   `json:"userId" binding:"required" example:"2"`
	Action string `json:"action" binding:"required,oneof=accept reject block" example:"accept" enums:"accept,reject,block"`
}

// RespondToRequest godoc
// @Summary 处理好友申请
// @Description 同意、拒绝或屏蔽 userId 发给我的好友申请
// @Tags 好友
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   request body RespondFriendRequest true "处理动作"
// @Success 200 {object} util.Response "成功"
// @Failure 404 {object} util.Response "申请不存在"
// @Router /api/friends/requests [put]
func (c *FriendController) RespondToRequest(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	var req RespondFriendRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.FriendshipService.RespondToRequest(ctx.Request.Context(), userID, req.UserID, req.Action); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"action": req.Action})
}

// ListRequests godoc
// @Summary 获取收到的好友申请
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.FriendRequestView} "成功"
// @Router /api/friends/requests [get]
func (c *FriendController) ListRequests(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	reqs, err := c.FriendshipService.ListIncoming(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, reqs)
}

// ListFriends godoc
// @Summary 获取好友列表
// @Description 获取当前用户的好友列表，支持根据昵称或邮箱模糊搜索
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Param   query query string false "搜索关键字 (昵称或邮箱)"
// @Success 200 {object} util.Response{data=[]model.UserBrief} "成功"
// @Router /api/friends [get]
func (c *FriendController) ListFriends(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	friends, err := c.FriendshipService.ListFriends(ctx.Request.Context(), userID, ctx.Query("query"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, friends)
}

// Search godoc
// @Summary 搜索用户
// @Description 按昵称或邮箱模糊搜索用户（最多 20 条），附带与我的好友关系
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Param   q query string true "搜索关键字"
// @Success 200 {object} util.Response{data=[]service.UserSearchResult} "成功"
// @Router /api/friends/search [get]
func (c *FriendController) Search(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	users, err := c.FriendshipService.Search(ctx.Request.Context(), userID, ctx.Query("q"))
	if err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// RemoveFriend godoc
// @Summary 删除好友
// @Description 解除与指定用户的好友关系
// @Tags 好友
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path uint true "好友用户ID"
// @Success 200 {object} util.Response "成功"
// @Router /api/friends/{id} [delete]
func (c *FriendController) RemoveFriend(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}
	friendID, ok := util.ParamUint(ctx, "id")
	if !ok {
		return
	}

	if err := c.FriendshipService.RemoveFriend(ctx.Request.Context(), userID, friendID); err != nil {
		util.HandleServiceError(ctx, err)
		return
	}
	util.Success(ctx, nil)
}
