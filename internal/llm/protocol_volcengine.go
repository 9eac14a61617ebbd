package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/volcengine/volcengine-go-sdk/service/arkruntime"
	volcModel "github.com/volcengine/volcengine-go-sdk/service/arkruntime/model"
	"github.com/volcengine/volcengine-go-sdk/volcengine"
)

//文档:https://www.volcengine.com/docs/82379/1824121

// 推荐的宽高像素值
var volcengineSizes = map[string]string{
	"1:1":  "2048x2048",
	"4:3":  "2304x1728",
	"3:4":  "1728x2304",
	"16:9": "2560x1440",
	"9:16": "1440x2560",
}

func volcengineSize(aspectRatio string) string {
	if size, ok := volcengineSizes[strings.TrimSpace(aspectRatio)]; ok {
		return size
	}
	return volcengineSizes["1:1"]
}

// volcengineGenerateFunc 生成单张图片并返回图片地址
type volcengineGenerateFunc func(ctx context.Context, model, prompt, size string) (string, error)

func generateImageByVolcengineProtocol(apiKey string) volcengineGenerateFunc {
	client := arkruntime.NewClientWithApiKey(apiKey)

	return func(ctx context.Context, model, prompt, size string) (string, error) {
		var sequentialImageGeneration volcModel.SequentialImageGeneration = "disabled"
		generateReq := volcModel.GenerateImagesRequest{
			Model:                     model,
			Prompt:                    prompt,
			Size:                      volcengine.String(size),
			ResponseFormat:            volcengine.String(volcModel.GenerateImagesResponseFormatURL), // 链接在图片生成后24小时内有效
			Watermark:                 volcengine.Bool(false),
			SequentialImageGeneration: &sequentialImageGeneration,
		}

		stream, err := client.GenerateImagesStreaming(ctx, generateReq)
		if err != nil {
			return "", err
		}
		defer stream.Close()

		var imageURL, failure string
		for {
			recv, err := stream.Recv()
			if err == io.EOF {
				break
			}
			if err != nil {
				return "", err
			}
			switch recv.Type {
			case "image_generation.partial_failed":
				if recv.Error != nil {
					failure = recv.Error.Message
					if strings.EqualFold(recv.Error.Code, "InternalServiceError") {
						return "", errors.New(failure)
					}
				}
			case "image_generation.partial_succeeded":
				if recv.Error == nil && recv.Url != nil && imageURL == "" {
					imageURL = *recv.Url
				}
			}
		}

		if imageURL == "" {
			if failure != "" {
				return "", errors.New(failure)
			}
			return "", ErrNoImages
		}
		return imageURL, nil
	}
}
