package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ChapterService struct {
	Chapters *repository.ChapterRepository
	Progress *repository.ProgressRepository
	Courses  *CourseService
	Access   *AccessService
	Storage  *StorageService
}

func NewChapterService(
	chapters *repository.ChapterRepository,
	progress *repository.ProgressRepository,
	courses *CourseService,
	access *AccessService,
	storage *StorageService,
) *ChapterService {
	return &ChapterService{
		Chapters: chapters,
		Progress: progress,
		Courses:  courses,
		Access:   access,
		Storage:  storage,
	}
}

func (s *ChapterService) FindChapter(ctx context.Context, courseID, chapterID string) (*model.Chapter, error) {
	chapter, err := s.Chapters.FindInCourse(ctx, courseID, chapterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrChapterNotFound
		}
		return nil, err
	}
	return chapter, nil
}

// ChapterDetail 章节详情，附带导航、观看次数与学习状态
type ChapterDetail struct {
	model.Chapter
	Navigation
	ViewCount        int64 `json:"viewCount"`
	HasExceededViews bool  `json:"hasExceededViews"`
	IsCompleted      bool  `json:"isCompleted"`
	HasAccess        bool  `json:"hasAccess"`
	IsLocked         bool  `json:"isLocked"`
}

// Detail 无权限且非免费的章节处于锁定状态，不返回视频地址和附件
func (s *ChapterService) Detail(ctx context.Context, actor *util.Claims, courseID, chapterID string) (*ChapterDetail, error) {
	course, err := s.Courses.FindVisible(ctx, actor, courseID)
	if err != nil {
		return nil, err
	}
	chapter, err := s.FindChapter(ctx, courseID, chapterID)
	if err != nil {
		return nil, err
	}
	manage := CanManage(actor, course)
	if !chapter.IsPublished && !manage {
		return nil, util.ErrChapterNotFound
	}

	hasAccess, err := s.Access.CanViewCourse(ctx, actor, course)
	if err != nil {
		return nil, err
	}
	seq, err := s.Courses.Sequence(ctx, course, !manage)
	if err != nil {
		return nil, err
	}
	views, err := s.Progress.CountViews(ctx, actor.UserID, chapter.ID)
	if err != nil {
		return nil, err
	}
	completed, err := s.Progress.IsCompleted(ctx, actor.UserID, chapter.ID)
	if err != nil {
		return nil, err
	}

	detail := &ChapterDetail{
		Chapter:     *chapter,
		Navigation:  seq.Navigation(model.ContentChapter, chapter.ID),
		ViewCount:   views,
		IsCompleted: completed,
		HasAccess:   hasAccess,
	}
	if limit := chapter.ViewLimit(); limit > 0 {
		detail.HasExceededViews = views >= int64(limit)
	}
	if !hasAccess && !chapter.IsFree {
		detail.IsLocked = true
		detail.VideoURL = ""
		detail.Attachments = nil
	}
	return detail, nil
}

type ChapterRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description"`
	VideoURL    *string `json:"videoUrl"`
	IsFree      *bool   `json:"isFree"`
	IsPublished *bool   `json:"isPublished"`
	// MaxViews 为 0 表示取消限制
	MaxViews *int `json:"maxViews" binding:"omitempty,min=0"`
}

func (r ChapterRequest) apply(chapter *model.Chapter) {
	if r.Title != nil {
		chapter.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		chapter.Description = *r.Description
	}
	if r.VideoURL != nil {
		chapter.VideoURL = *r.VideoURL
	}
	if r.IsFree != nil {
		chapter.IsFree = *r.IsFree
	}
	if r.IsPublished != nil {
		chapter.IsPublished = *r.IsPublished
	}
	if r.MaxViews != nil {
		if *r.MaxViews == 0 {
			chapter.MaxViews = nil
		} else {
			v := *r.MaxViews
			chapter.MaxViews = &v
		}
	}
}

func (s *ChapterService) Create(ctx context.Context, actor *util.Claims, courseID string, req ChapterRequest) (*model.Chapter, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	if req.Title == nil || strings.TrimSpace(*req.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}

	chapter := &model.Chapter{}
	chapter.CourseID = courseID
	req.apply(chapter)

	err := s.Courses.Courses.AppendContent(ctx, courseID, func(tx *gorm.DB, position int) error {
		chapter.Position = position
		return s.Chapters.WithTx(tx).Create(ctx, chapter)
	})
	if err != nil {
		return nil, fmt.Errorf("create chapter: %w", err)
	}
	return chapter, nil
}

func (s *ChapterService) findManaged(ctx context.Context, actor *util.Claims, courseID, chapterID string) (*model.Chapter, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.FindChapter(ctx, courseID, chapterID)
}

func (s *ChapterService) Get(ctx context.Context, actor *util.Claims, courseID, chapterID string) (*model.Chapter, error) {
	return s.findManaged(ctx, actor, courseID, chapterID)
}

func (s *ChapterService) List(ctx context.Context, actor *util.Claims, courseID string) ([]model.Chapter, error) {
	if _, err := s.Courses.FindManaged(ctx, actor, courseID); err != nil {
		return nil, err
	}
	return s.Chapters.ListByCourse(ctx, courseID, false)
}

func (s *ChapterService) Update(ctx context.Context, actor *util.Claims, courseID, chapterID string, req ChapterRequest) (*model.Chapter, error) {
	chapter, err := s.findManaged(ctx, actor, courseID, chapterID)
	if err != nil {
		return nil, err
	}
	req.apply(chapter)
	if chapter.Title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if err := s.Chapters.Update(ctx, chapter); err != nil {
		return nil, err
	}
	return chapter, nil
}

func (s *ChapterService) Delete(ctx context.Context, actor *util.Claims, courseID, chapterID string) error {
	chapter, err := s.findManaged(ctx, actor, courseID, chapterID)
	if err != nil {
		return err
	}
	if err := s.Chapters.Delete(ctx, chapter.ID); err != nil {
		return err
	}

	s.Storage.Remove(ctx, chapter.VideoKey)
	for _, a := range chapter.Attachments {
		s.Storage.Remove(ctx, a.ObjectKey)
	}
	return nil
}

// UploadVideo 校验视频格式，探测时长后写入存储并更新章节
func (s *ChapterService) UploadVideo(ctx context.Context, actor *util.Claims, courseID, chapterID string, file *multipart.FileHeader) (*model.Chapter, error) {
	chapter, err := s.findManaged(ctx, actor, courseID, chapterID)
	if err != nil {
		return nil, err
	}

	if !util.HasAllowedExtension(file.Filename, util.AllowedVideoExtensions) {
		return nil, fmt.Errorf("%w: unsupported video extension", util.ErrValidation)
	}
	if file.Size > util.MaxVideoSize {
		return nil, fmt.Errorf("%w: video exceeds size limit", util.ErrValidation)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType, err := util.ValidateMimeType(src, []string{util.MimeVideo, util.MimeOctetStream})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	if !util.IsVideo(contentType) {
		contentType = file.Header.Get("Content-Type")
	}

	// 临时落盘供 ffprobe 读取
	ext := strings.ToLower(filepath.Ext(file.Filename))
	tmp, err := os.CreateTemp("", "chapter_video_*"+ext)
	if err != nil {
		return nil, err
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, src); err != nil {
		tmp.Close()
		return nil, err
	}
	tmp.Close()

	duration := 0.0
	if info, err := util.GetVideoInfo(tmp.Name()); err != nil {
		logger.Log.Warn("获取视频时长失败", zap.String("chapterId", chapter.ID), zap.Error(err))
	} else {
		duration = info.Duration
	}

	key := util.ObjectKey("chapters/"+chapter.ID+"/video", file.Filename)
	url, err := s.Storage.PutFile(ctx, key, tmp.Name(), contentType)
	if err != nil {
		return nil, fmt.Errorf("store video: %w", err)
	}

	oldKey := chapter.VideoKey
	chapter.VideoURL = url
	chapter.VideoKey = key
	chapter.VideoDuration = duration
	if err := s.Chapters.Update(ctx, chapter); err != nil {
		s.Storage.Remove(ctx, key)
		return nil, err
	}
	if oldKey != "" && oldKey != key {
		s.Storage.Remove(ctx, oldKey)
	}
	return chapter, nil
}

func (s *ChapterService) AddAttachment(ctx context.Context, actor *util.Claims, courseID, chapterID string, file *multipart.FileHeader, name string) (*model.Attachment, error) {
	chapter, err := s.findManaged(ctx, actor, courseID, chapterID)
	if err != nil {
		return nil, err
	}
	if file.Size > util.MaxAttachmentSize {
		return nil, fmt.Errorf("%w: attachment exceeds size limit", util.ErrValidation)
	}

	src, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	contentType, err := util.ValidateMimeType(src, util.AllowedAttachmentTypes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key := util.ObjectKey("chapters/"+chapter.ID+"/attachments", file.Filename)
	url, err := s.Storage.Put(ctx, key, src, file.Size, contentType)
	if err != nil {
		return nil, fmt.Errorf("store attachment: %w", err)
	}

	if strings.TrimSpace(name) == "" {
		name = file.Filename
	}
	attachment := &model.Attachment{
		ChapterID: chapter.ID,
		Name:      name,
		URL:       url,
		ObjectKey: key,
	}
	if err := s.Chapters.CreateAttachment(ctx, attachment); err != nil {
		s.Storage.Remove(ctx, key)
		return nil, err
	}
	return attachment, nil
}

func (s *ChapterService) DeleteAttachment(ctx context.Context, actor *util.Claims, courseID, chapterID, attachmentID string) error {
	chapter, err := s.findManaged(ctx, actor, courseID, chapterID)
	if err != nil {
		return err
	}
	attachment, err := s.Chapters.FindAttachment(ctx, chapter.ID, attachmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return util.ErrChapterNotFound
		}
		return err
	}
	if err := s.Chapters.DeleteAttachment(ctx, attachment.ID); err != nil {
		return err
	}
	s.Storage.Remove(ctx, attachment.ObjectKey)
	return nil
}
